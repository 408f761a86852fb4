// Package cmd defines the kong command tree for the rlm2c binary.
package cmd

// LogFlags groups the logging configuration shared by all commands.
type LogFlags struct {
	Level     string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"RLM2C_LOG_LEVEL"`
	File      string `help:"Write logs to this file instead of stdout/stderr" env:"RLM2C_LOG_FILE"`
	EventFile string `help:"Trace every captured input event to this file" env:"RLM2C_LOG_EVENT_FILE"`
}

// CLI is the root command structure parsed by kong.
type CLI struct {
	Log    LogFlags      `embed:"" prefix:"log."`
	Config string        `help:"Path to configuration file" env:"RLM2C_CONFIG"`
	Run    Run           `cmd:"" default:"withargs" help:"Run the remapping engine"`
	Cfg    ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
