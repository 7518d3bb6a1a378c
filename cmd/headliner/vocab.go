package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/headliner/internal/vocab"
)

func vocabCmd() *cli.Command {
	return &cli.Command{
		Name:      "vocab",
		Usage:     "Tokenize text with the vocabulary and print tokens and ids",
		ArgsUsage: "<text...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "vocab",
				Aliases:     []string{"v"},
				Usage:       "path to vocab.txt or tokenizer.json",
				Sources:     cli.EnvVars(envVocab),
				Destination: &vocabPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if fileConfig.Vocab != "" && !cmd.IsSet("vocab") {
				vocabPath = fileConfig.Vocab
			}
			v, err := loadVocab()
			if err != nil {
				return err
			}
			if cmd.Args().Len() == 0 {
				printSpecials(os.Stdout, v)
				return nil
			}
			printTokens(os.Stdout, v, strings.Join(cmd.Args().Slice(), " "))
			return nil
		},
	}
}

func printSpecials(w io.Writer, v *vocab.Vocab) {
	names := v.SpecialTokens()
	ids := v.Specials()
	_, _ = fmt.Fprintf(w, "size:      %d\n", v.Size())
	for _, row := range []struct {
		role string
		tok  string
		id   int
	}{
		{"start", names.Start, ids.Start},
		{"separator", names.Separator, ids.Separator},
		{"unknown", names.Unknown, ids.Unknown},
		{"content", names.Content, ids.Content},
		{"title", names.Title, ids.Title},
		{"space", names.Space, ids.Space},
	} {
		_, _ = fmt.Fprintf(w, "%-10s %-10s %d\n", row.role+":", row.tok, row.id)
	}
}

func printTokens(w io.Writer, v *vocab.Vocab, text string) {
	tokens := v.Tokenize(text)
	ids := v.IDsFor(tokens)
	for i, tok := range tokens {
		_, _ = fmt.Fprintf(w, "%6d  %s\n", ids[i], tok)
	}
	_, _ = fmt.Fprintf(w, "%d tokens\n", len(tokens))
}
