// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trickle is a terminal chat client for OpenAI-compatible completion
// endpoints. Replies stream in from the provider and are revealed at a
// reading pace: whole short words, single CJK characters, and longer
// pauses after punctuation and paragraph breaks.
//
// Three modes of operation:
//
// Interactive (default when stdin and stdout are terminals): a
// full-screen chat with a scrollable history and markdown rendering of
// completed replies.
//
// Plain (--plain, or when either stream is not a terminal): reads one
// message per line from stdin and writes paced replies to stdout.
//
// Relay (--serve): an HTTP server that streams paced replies to
// browsers as server-sent events, using the configured credential.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/trickle/lib/chatui"
	"github.com/bureau-foundation/trickle/lib/config"
	"github.com/bureau-foundation/trickle/lib/conversation"
	"github.com/bureau-foundation/trickle/lib/credential"
	"github.com/bureau-foundation/trickle/lib/llm"
	"github.com/bureau-foundation/trickle/lib/process"
	"github.com/bureau-foundation/trickle/lib/relay"
	"github.com/bureau-foundation/trickle/lib/transcript"
	"github.com/bureau-foundation/trickle/lib/version"
	"github.com/bureau-foundation/trickle/lib/window"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		process.Fatal(err)
	}
}

// serveFromConfig is the --serve value meaning "the configured relay
// address".
const serveFromConfig = "config"

type flags struct {
	configPath     string
	credentialFile string
	transcriptPath string
	logFile        string
	serve          string
	plain          bool
	verbose        bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var options flags
	flagSet := pflag.NewFlagSet("trickle", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&options.configPath, "config", "", "path to config file (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringVar(&options.credentialFile, "credential-file", "", `file holding the API key ("-" reads the first line of stdin; default: prompt)`)
	flagSet.StringVar(&options.transcriptPath, "transcript", "", "resume from and record turns to this transcript file")
	flagSet.StringVar(&options.logFile, "log-file", "", "also write JSON log records to this file")
	flagSet.StringVar(&options.serve, "serve", "", "serve the browser relay on ADDR instead of chatting (--serve alone uses the configured address)")
	flagSet.Lookup("serve").NoOptDefVal = serveFromConfig
	flagSet.BoolVar(&options.plain, "plain", false, "line-oriented chat on stdin/stdout without the full-screen interface")
	flagSet.BoolVarP(&options.verbose, "verbose", "v", false, "log debug records")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet, stderr)
			return nil
		}
		return usageError{err: err}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet, stderr)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "trickle %s\n", version.Full())
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return usageError{err: fmt.Errorf("unexpected argument: %s (use --serve=ADDR to give a relay address)", rest[0])}
	}

	cfg, err := loadConfig(options)
	if err != nil {
		return err
	}

	input := bufio.NewReader(stdin)
	key, err := readCredential(cfg.CredentialFile, input, stdin, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if options.verbose {
		level = slog.LevelDebug
	}

	interactive := !options.plain && options.serve == "" && isTerminal(stdin) && isTerminal(stdout)

	var tuiHandler *chatui.LogHandler
	var consoleHandler slog.Handler
	if interactive {
		// Records on stderr would corrupt the alternate screen.
		tuiHandler = chatui.NewLogHandler(max(level, slog.LevelWarn))
		consoleHandler = tuiHandler
	} else {
		consoleHandler = newConsoleHandler(stderr, level)
	}
	logger, closeLog, err := newLogger(consoleHandler, options.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	clientOptions := cfg.ClientOptions()
	clientOptions.UserAgent = version.UserAgent()
	clientOptions.Logger = logger.With("component", "llm")
	client := llm.NewClient(clientOptions)

	var historyWindow conversation.HistoryWindow
	if budget := cfg.Request.ContextBudget; budget > 0 {
		historyWindow = window.New(budget)
	}

	if options.serve != "" {
		address := options.serve
		if address == serveFromConfig {
			address = cfg.Relay.Listen
		}
		server := relay.New(relay.Options{
			Sender:         client,
			Credential:     key,
			Pacing:         cfg.PacingOptions(),
			Window:         historyWindow,
			AllowedOrigins: cfg.Relay.AllowedOrigins,
			Logger:         logger.With("component", "relay"),
		})
		return server.ListenAndServe(ctx, address)
	}

	chatOptions := conversation.Options{
		Sender:     client,
		Credential: key,
		Pacing:     cfg.PacingOptions(),
		Window:     historyWindow,
		Logger:     logger.With("component", "conversation"),
	}
	if cfg.Transcript != "" {
		recorded, err := transcript.Open(cfg.Transcript)
		if err != nil {
			return fmt.Errorf("opening transcript: %w", err)
		}
		chatOptions.History = recorded.Turns()
		chatOptions.Sink = recorded
		logger.Debug("transcript loaded", "path", recorded.Path(), "turns", len(chatOptions.History))
	}
	chat := conversation.New(chatOptions)

	if interactive {
		return chatui.Run(ctx, chat, chatui.Options{
			Title:      cfg.Model,
			LogHandler: tuiHandler,
		})
	}
	return runPlain(ctx, chat, input, stdout, isTerminal(stdin))
}

// loadConfig resolves the configuration file, then applies flag
// overrides.
func loadConfig(options flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case options.configPath != "":
		cfg, err = config.LoadFile(options.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if options.credentialFile != "" {
		cfg.CredentialFile = options.credentialFile
	}
	if options.transcriptPath != "" {
		cfg.Transcript = options.transcriptPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError{err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, nil
}

// readCredential obtains the API key. "-" reads the first line of
// input, which plain mode keeps reading afterwards; an empty path
// prompts on the terminal.
func readCredential(path string, input *bufio.Reader, stdin io.Reader, prompt io.Writer) (credential.Credential, error) {
	switch path {
	case "-":
		line, err := input.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading credential: %w", err)
		}
		key := credential.New(line)
		if err := key.Validate(); err != nil {
			return "", usageError{err: fmt.Errorf("credential from stdin: %w", err)}
		}
		return key, nil
	case "":
		file, ok := stdin.(*os.File)
		if !ok {
			return "", usageError{err: credential.ErrNoTerminal}
		}
		key, err := credential.Prompt(file, prompt, "API key: ")
		if errors.Is(err, credential.ErrNoTerminal) {
			return "", usageError{err: fmt.Errorf("%w; use --credential-file", err)}
		}
		return key, err
	default:
		return credential.ReadFile(path)
	}
}

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// usageError is a command-line or configuration mistake. It exits with
// status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func (e usageError) ExitCode() int { return 2 }

func printHelp(flagSet *pflag.FlagSet, output io.Writer) {
	fmt.Fprintf(output, `trickle: chat with an OpenAI-compatible model, revealed at reading pace.

Usage:
  trickle [flags]

Examples:
  # Full-screen chat, prompting for the API key
  trickle

  # Keep a transcript and read the key from a file
  trickle --credential-file ~/.config/trickle/key --transcript ~/chat.trkl

  # Pipe a question through
  echo "What is a goroutine?" | trickle --plain --credential-file ~/.config/trickle/key

  # Serve the browser relay
  trickle --serve=127.0.0.1:8787 --credential-file ~/.config/trickle/key

Flags:
`)
	flagSet.SetOutput(output)
	flagSet.PrintDefaults()
	fmt.Fprintln(output, strings.TrimSpace(`
Configuration is read from --config or $`+config.EnvironmentVariable+` (YAML, JSON or JSONC).`))
}
