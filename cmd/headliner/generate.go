package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/headliner/internal/logger"
)

const maxInteractiveLine = 4 << 20

type titleGenerator interface {
	Generate(ctx context.Context, content string, numTitles int) ([]string, error)
}

func generateCmd() *cli.Command {
	var (
		text     string
		textFile string
	)

	flags := append(engineFlags(), decodeFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "text",
			Aliases:     []string{"t"},
			Usage:       "article text (omit to read texts from stdin, one per line)",
			Destination: &text,
		},
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "read the article text from a file",
			Destination: &textFile,
		},
	)

	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate candidate titles for article text",
		ArgsUsage: "[text...]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			gen, err := buildGenerator(ctx, cmd)
			if err != nil {
				return err
			}

			content := text
			if textFile != "" {
				data, err := os.ReadFile(textFile)
				if err != nil {
					return fmt.Errorf("read text file: %w", err)
				}
				content = string(data)
			}
			if content == "" && cmd.Args().Len() > 0 {
				content = strings.Join(cmd.Args().Slice(), " ")
			}

			if strings.TrimSpace(content) != "" {
				titles, err := gen.Generate(ctx, content, 0)
				if err != nil {
					return err
				}
				printTitles(os.Stdout, titles)
				return nil
			}
			return runInteractive(ctx, gen, os.Stdin, os.Stdout, stdinIsTerminal())
		},
	}
}

// runInteractive reads one article per line from in until EOF and prints
// the titles for each. Failures are logged and the loop continues.
func runInteractive(ctx context.Context, gen titleGenerator, in io.Reader, out io.Writer, prompt bool) error {
	log := logger.FromContext(ctx)
	if prompt {
		_, _ = fmt.Fprintln(out, "Enter article text, one per line. Ctrl+D exits.")
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxInteractiveLine)
	for {
		if prompt {
			_, _ = fmt.Fprint(out, "text> ")
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		titles, err := gen.Generate(ctx, line, 0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("generation failed", "error", err)
			continue
		}
		printTitles(out, titles)
	}
	if prompt {
		_, _ = fmt.Fprintln(out)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func printTitles(w io.Writer, titles []string) {
	for i, t := range titles {
		_, _ = fmt.Fprintf(w, "title %d: %s\n", i+1, t)
	}
}
