package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/glampert/parse-utils/pkg/lexer"
	"github.com/glampert/parse-utils/pkg/preproc"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// Preprocessor options
var (
	outputFile     string
	includePaths   []string
	defineFlags    []string
	undefineFlags  []string
	maxLineLength  int
	noIncludes     bool
	noBaseIncludes bool
	noDollar       bool
	warnRedefs     bool
	noWarnings     bool
	dumpTokens     bool // lex only, print the token stream
)

// resetFlags restores the package flag state between test runs.
func resetFlags() {
	outputFile = ""
	includePaths = nil
	defineFlags = nil
	undefineFlags = nil
	maxLineLength = preproc.DefaultMaxOutputLineLength
	noIncludes = false
	noBaseIncludes = false
	noDollar = false
	warnRedefs = false
	noWarnings = false
	dumpTokens = false
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "parse-cpp: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "parse-cpp [file]",
		Short: "parse-cpp runs a C-like macro preprocessor over a text file",
		Long: `parse-cpp expands macros and resolves preprocessing directives
(#define, #if/#else, #include, #pragma, ...) in the given file,
including the $eval extension for inline constant folding, and
writes the expanded text to stdout or to the -o output file.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			if dumpTokens {
				return doDumpTokens(filename, out)
			}
			return doPreprocess(filename, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the expanded text to this file instead of stdout")
	rootCmd.Flags().StringArrayVarP(&includePaths, "include", "I", nil, "Add directory to the '#include <>' search path")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "Define macro (NAME or NAME=VALUE)")
	rootCmd.Flags().StringArrayVarP(&undefineFlags, "undefine", "U", nil, "Undefine macro")
	rootCmd.Flags().IntVar(&maxLineLength, "max-line-len", preproc.DefaultMaxOutputLineLength, "Break output lines at the next ';' past this column (0 disables)")
	rootCmd.Flags().BoolVar(&noIncludes, "no-includes", false, "Disable the #include directive")
	rootCmd.Flags().BoolVar(&noBaseIncludes, "no-base-includes", false, "Disable '#include <>' style inclusion")
	rootCmd.Flags().BoolVar(&noDollar, "no-dollar", false, "Disable the $eval directives")
	rootCmd.Flags().BoolVar(&warnRedefs, "warn-redefs", false, "Warn when a #define overwrites an existing macro")
	rootCmd.Flags().BoolVarP(&noWarnings, "no-warnings", "w", false, "Silence warnings")
	rootCmd.Flags().BoolVar(&dumpTokens, "tokens", false, "Only lex the file and print the token stream")

	return rootCmd
}

// buildPreprocessor creates a preproc.Preprocessor from the CLI flags.
func buildPreprocessor() *preproc.Preprocessor {
	var flags preproc.Flags
	if noIncludes {
		flags |= preproc.NoIncludes
	}
	if noBaseIncludes {
		flags |= preproc.NoBaseIncludes
	}
	if noDollar {
		flags |= preproc.NoDollarDirectives
	}
	if warnRedefs {
		flags |= preproc.WarnMacroRedefinitions
	}
	if noWarnings {
		flags |= preproc.NoWarnings
	}

	pp := preproc.New(flags)
	pp.SetMaxOutputLineLength(maxLineLength)

	for _, path := range includePaths {
		pp.AddSearchPath(path)
	}

	// -D flags accept NAME or NAME=VALUE. A bare name defines to 1,
	// the cc convention.
	for _, d := range defineFlags {
		if idx := strings.Index(d, "="); idx >= 0 {
			pp.DefineRaw("#define "+d[:idx]+" "+d[idx+1:], true)
		} else {
			pp.DefineInt64(d, 1, true)
		}
	}
	for _, u := range undefineFlags {
		pp.Undef(u)
	}

	return pp
}

func doPreprocess(filename string, out, errOut io.Writer) error {
	pp := buildPreprocessor()
	if err := pp.InitFromFile(filename); err != nil {
		return err
	}

	text, err := pp.Preprocess()
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
			fmt.Fprintf(errOut, "parse-cpp: error writing %s: %v\n", outputFile, err)
			return err
		}
		return nil
	}

	fmt.Fprintln(out, text)
	return nil
}

// doDumpTokens lexes the file without preprocessing and prints one
// token per line with its type and location.
func doDumpTokens(filename string, out io.Writer) error {
	lx, err := lexer.NewFromFile(filename, lexer.AllowIPAddresses|lexer.AllowFloatExceptions)
	if err != nil {
		return err
	}

	var tok lexer.Token
	for lx.NextToken(&tok) == nil {
		if tok.IsNumber() {
			fmt.Fprintf(out, "%4d  %-12s %-16s %s\n",
				tok.Line(), tok.Kind(), tok.Text(), lexer.FlagsString(tok.Flags()))
		} else {
			fmt.Fprintf(out, "%4d  %-12s %s\n", tok.Line(), tok.Kind(), tok.Text())
		}
	}

	if lx.ErrorCount() != 0 {
		return fmt.Errorf("%d errors lexing %s", lx.ErrorCount(), filename)
	}
	return nil
}
