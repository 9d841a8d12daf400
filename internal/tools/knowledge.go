package tools

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/rahul/sutra/internal/oracle"
	"github.com/rahul/sutra/internal/prompts"
)

// Limit corpus length to avoid massive token usage.
const maxCorpusChars = 50000

// DocsKnowledge answers questions from a directory of local documents. Plain
// text and markdown are read as-is; HTML goes through readability extraction
// and a strict sanitizer first.
type DocsKnowledge struct {
	Oracle oracle.Client
	Dir    string
}

func NewDocsKnowledge(client oracle.Client, dir string) *DocsKnowledge {
	return &DocsKnowledge{Oracle: client, Dir: dir}
}

func (d *DocsKnowledge) Answer(ctx context.Context, question string) string {
	docs, err := d.loadCorpus()
	if err != nil {
		log.Printf("Warning: reading knowledge directory %s: %v", d.Dir, err)
		return fmt.Sprintf("I could not consult the knowledge base: %v", err)
	}
	if docs == "" {
		return "The knowledge base has no documents to consult."
	}

	out, err := d.Oracle.Complete(ctx, map[string]string{
		"question":  question,
		"documents": docs,
	}, prompts.KnowledgeAnswer, false)
	if err != nil {
		log.Printf("Warning: knowledge lookup for %q failed: %v", question, err)
		return fmt.Sprintf("I could not consult the knowledge base: %v", err)
	}
	return out.Text
}

func (d *DocsKnowledge) loadCorpus() (string, error) {
	var sb strings.Builder
	err := filepath.WalkDir(d.Dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		var text string
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			text = string(raw)
		case ".html", ".htm":
			extracted, err := extractHTML(path)
			if err != nil {
				log.Printf("Warning: skipping %s: %v", path, err)
				return nil
			}
			text = extracted
		default:
			return nil
		}

		fmt.Fprintf(&sb, "-- %s --\n%s\n\n", entry.Name(), strings.TrimSpace(text))
		return nil
	})
	if err != nil {
		return "", err
	}

	corpus := strings.TrimSpace(sb.String())
	if len(corpus) > maxCorpusChars {
		corpus = corpus[:maxCorpusChars] + "\n... (content truncated) ..."
	}
	return corpus, nil
}

func extractHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	base, _ := url.Parse("file://" + path)
	article, err := readability.FromReader(f, base)
	if err != nil {
		return "", err
	}
	return bluemonday.StrictPolicy().Sanitize(article.TextContent), nil
}
