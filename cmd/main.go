package main

import (
	"flag"
	"fmt"
	"os"

	"aotc/internal/compiler"
	"aotc/internal/logger"
	"aotc/pkg/color"

	"github.com/charmbracelet/log"
)

// Main entry point for the aotc compiler driver.
func main() {
	options := compiler.Compiler{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&options.ShouldInterpret, "r", false, "Run the entry function with the interpreter")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.BoolVar(&options.NoLineNumbers, "L", false, "Disable line number tracking (no shadow frames)")
	flag.StringVar(&options.ConfigFile, "c", "", "Config file (.toml, .yaml or .yml)")
	flag.StringVar(&options.OutputFile, "o", "", "Write the instrumented IR to this file")
	flag.StringVar(&options.Entry, "e", "", "Entry function (default from config, else main)")

	flag.Parse()
	args := flag.Args()

	logger.Init(options.Verbose, options.NoColor)
	if options.Help {
		fmt.Printf("Usage: %s [options] <file>\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if options.NoColor {
		color.EnableColor(false)
	}

	if len(args) == 0 {
		log.Fatal("No input file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}

	options.SourceFile = args[0]

	err := options.Compile()
	if err != nil {
		log.Fatal("Compilation failed", "error", err)
	}
}
