package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"classvm"
)

var (
	className  string
	methodName string
	methodDesc string
	dump       bool
	verbose    bool

	log = logrus.New()
)

var command = &cobra.Command{
	Use:   "classvm class-file [class-file...]",
	Short: "load class files and invoke a static method on one of them",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}

		m := classvm.NewMachine()
		m.LoadNativeBootstrap()

		var last *classvm.Class
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			cls, err := m.LoadClass(data)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			last = cls
		}

		if dump {
			target := last
			if className != "" {
				var err error
				target, err = m.GetClass(className)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
			}
			if err := dumpMethod(target, methodName, methodDesc); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}

		if className == "" {
			className = last.Name
		}
		if methodName == "" {
			fmt.Fprintln(os.Stderr, "--method is required to invoke a class")
			os.Exit(1)
		}

		m.Trace = func(t *classvm.Thread, fr *classvm.Frame, instr classvm.Instruction) {
			log.WithFields(logrus.Fields{
				"thread": t.ID,
				"class":  fr.Class.Name,
				"method": fr.Method.Name + fr.Method.Desc,
				"pc":     instr.PC,
			}).Debug(instr.Name())
		}

		result, hasResult, err := m.InvokeStatic(classvm.ThreadID(0), className, methodName, methodDesc, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if hasResult {
			fmt.Println(result.String())
		}
	},
}

// dumpMethod prints the decoded instruction stream of a method without
// executing it, the static counterpart to --verbose tracing.
func dumpMethod(cls *classvm.Class, name, desc string) error {
	if cls == nil {
		return fmt.Errorf("no class loaded to dump")
	}
	m, ok := cls.GetMethod(name, desc)
	if !ok {
		return fmt.Errorf("method %s%s not found on %s", name, desc, cls.Name)
	}
	if m.Code == nil {
		return fmt.Errorf("method %s%s on %s has no code", name, desc, cls.Name)
	}
	code := m.Code.Code
	for pc := 0; pc < len(code); {
		instr, err := classvm.NextOp(code, pc)
		if err != nil {
			return err
		}
		fmt.Printf("%4d: %s\n", instr.PC, instr.Name())
		pc += instr.Length
	}
	return nil
}

func init() {
	command.Flags().StringVar(&className, "class", "", "internal name of the class to invoke or dump (defaults to the last loaded class file)")
	command.Flags().StringVar(&methodName, "method", "", "name of the method to invoke or dump")
	command.Flags().StringVar(&methodDesc, "desc", "()V", "descriptor of the method to invoke or dump")
	command.Flags().BoolVar(&dump, "dump", false, "decode and print the method's instructions instead of running it")
	command.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace every executed instruction to stderr")
}

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
