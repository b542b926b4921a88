package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// hookRunner executes the SQL files configured for one pipeline phase
// against the target, expanding {{schema}} and {{table}} first.
type hookRunner struct {
	hooks   HooksConfig
	resolve func(string) string
	schema  string
}

func (h hookRunner) files(phase string) []string {
	switch phase {
	case "before_data":
		return h.hooks.BeforeData
	case "after_data":
		return h.hooks.AfterData
	case "before_fk":
		return h.hooks.BeforeFk
	case "after_all":
		return h.hooks.AfterAll
	}
	return nil
}

func (h hookRunner) run(ctx context.Context, target targetExecutor, log zerolog.Logger, phase, table string) error {
	files := h.files(phase)
	if len(files) == 0 {
		return nil
	}
	log.Info().Str("phase", phase).Int("files", len(files)).Msg("running hooks")

	replacer := strings.NewReplacer("{{schema}}", h.schema, "{{table}}", targetName(table))
	for _, f := range files {
		path := f
		if h.resolve != nil {
			path = h.resolve(f)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return newMigrationError(KindPrecondition, table, "hooks "+phase, fmt.Errorf("read %s: %w", f, err))
		}

		stmts := splitStatements(replacer.Replace(string(data)))
		log.Debug().Str("phase", phase).Str("file", f).Int("statements", len(stmts)).Msg("hook file")
		for i, stmt := range stmts {
			if _, err := target.Exec(ctx, stmt); err != nil {
				return newMigrationError(KindDDLExecution, table, "hooks "+phase,
					fmt.Errorf("%s: statement %d: %w\nSQL: %s", f, i+1, err, stmt))
			}
		}
	}
	return nil
}

// splitStatements splits SQL text on top-level semicolons. Semicolons inside
// quoted literals, quoted identifiers, comments and dollar-quoted bodies do
// not split. Empty statements are dropped.
func splitStatements(sql string) []string {
	var stmts []string
	start := 0
	flush := func(end int) {
		if s := strings.TrimSpace(sql[start:end]); s != "" {
			stmts = append(stmts, s)
		}
	}

	for i := 0; i < len(sql); {
		switch c := sql[i]; {
		case c == '\'' || c == '"':
			i = skipQuoted(sql, i, c)
		case c == '-' && strings.HasPrefix(sql[i:], "--"):
			if nl := strings.IndexByte(sql[i:], '\n'); nl >= 0 {
				i += nl + 1
			} else {
				i = len(sql)
			}
		case c == '/' && strings.HasPrefix(sql[i:], "/*"):
			i = skipBlockComment(sql, i)
		case c == '$':
			if tag, ok := dollarTagAt(sql, i); ok {
				if end := strings.Index(sql[i+len(tag):], tag); end >= 0 {
					i += len(tag) + end + len(tag)
				} else {
					i = len(sql)
				}
				continue
			}
			i++
		case c == ';':
			flush(i)
			i++
			start = i
		default:
			i++
		}
	}
	flush(len(sql))
	return stmts
}

// skipQuoted returns the index just past the literal or identifier opened at
// i. A doubled quote character is an escaped quote.
func skipQuoted(sql string, i int, quote byte) int {
	for j := i + 1; j < len(sql); j++ {
		if sql[j] != quote {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(sql)
}

// skipBlockComment returns the index just past the (possibly nested) block
// comment opened at i.
func skipBlockComment(sql string, i int) int {
	depth := 0
	for j := i; j < len(sql)-1; j++ {
		switch sql[j : j+2] {
		case "/*":
			depth++
			j++
		case "*/":
			depth--
			j++
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(sql)
}

// dollarTagAt reports the $tag$ (or $$) starting at i, if any.
func dollarTagAt(sql string, i int) (string, bool) {
	j := i + 1
	for j < len(sql) && (sql[j] == '_' || sql[j] >= 'a' && sql[j] <= 'z' || sql[j] >= 'A' && sql[j] <= 'Z' ||
		j > i+1 && sql[j] >= '0' && sql[j] <= '9') {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[i : j+1], true
	}
	return "", false
}
