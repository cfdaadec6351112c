package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/agent"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/editor"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/mail"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/migrate"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/ui"
	"github.com/starford/ansuz/internal/vcs"
)

func collectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "collections",
		Usage: "List the configured collections",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			for _, name := range app.reg.Names() {
				cc := app.reg.Get(name)
				line := fmt.Sprintf("%s  %s", ui.Accent.Render(fmt.Sprintf("%-12s", name)), cc.DirName)
				if cc.Tagline != "" {
					line += "  " + ui.Muted.Render(cc.Tagline)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List items of a collection",
		ArgsUsage: "<collection>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			name, err := requireArg(cmd, 0, "collection")
			if err != nil {
				return err
			}
			eng, err := app.engine(name)
			if err != nil {
				return err
			}
			items, err := eng.List()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Printf("No items in %s.\n", name)
				return nil
			}
			fmt.Print(ui.RenderItems(eng.Config().Columns(), items))
			return nil
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new item",
		ArgsUsage: "<collection> [title]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "slug", Usage: "Slug override (derived from the title when empty)"},
			&cli.StringSliceFlag{Name: "field", Aliases: []string{"f"}, Usage: "Extra front-matter field as key=value (repeatable)"},
			&cli.StringFlag{Name: "body", Usage: "Markdown body"},
			&cli.BoolFlag{Name: "edit", Aliases: []string{"e"}, Usage: "Compose the body in $EDITOR"},
			&cli.BoolFlag{Name: "push", Aliases: []string{"p"}, Usage: "Commit and push after creating"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			name, err := requireArg(cmd, 0, "collection")
			if err != nil {
				return err
			}
			eng, err := app.engine(name)
			if err != nil {
				return err
			}
			cc := eng.Config()

			title := strings.TrimSpace(strings.Join(cmd.Args().Slice()[1:], " "))
			if title == "" && ui.Interactive() {
				if title, err = ui.ReadLine(cc.TitlePrompt); err != nil {
					return err
				}
			}

			extra := map[string]string{}
			for _, kv := range cmd.StringSlice("field") {
				key, val, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("field %q is not key=value: %w", kv, apperr.ErrValidation)
				}
				extra[key] = val
			}
			if ui.Interactive() {
				for _, f := range cc.Fields {
					if _, given := extra[f.Name]; given {
						continue
					}
					prompt := f.Prompt
					if !f.Required {
						prompt += " (optional)"
					}
					val, err := ui.ReadLine(prompt)
					if err != nil {
						return err
					}
					extra[f.Name] = val
				}
			}

			body := cmd.String("body")
			if body == "" && cmd.Bool("edit") {
				ed := editor.Resolve(app.cfg.App.Editor)
				template := fmt.Sprintf("# Notes on: %s\n# Write below. Lines starting with # will be removed.\n\n", title)
				if body, err = ed.Compose(ctx, template); err != nil {
					return err
				}
			}

			item, err := eng.Create(title, cmd.String("slug"), extra, body)
			if err != nil {
				return err
			}
			fmt.Printf("Created: %s\n", ui.Accent.Render(item.Path))
			fmt.Printf("URL: %s\n", eng.ItemURL(item.Slug))

			if cmd.Bool("push") {
				message := vcs.CommitMessage("New", name, item.Title)
				if err := vcs.New(eng.Store().Root()).CommitAndPush(ctx, []string{item.Path}, message); err != nil {
					return err
				}
				fmt.Printf("Pushed: %s\n", message)
			}
			return nil
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Open an item in $EDITOR",
		ArgsUsage: "<collection> <slug>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			name, err := requireArg(cmd, 0, "collection")
			if err != nil {
				return err
			}
			eng, err := app.engine(name)
			if err != nil {
				return err
			}
			slug, err := pickSlug(cmd, eng, 1)
			if err != nil {
				return err
			}
			path, err := eng.EditPath(slug)
			if err != nil {
				return err
			}
			return editor.Resolve(app.cfg.App.Editor).Open(ctx, path)
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an item",
		ArgsUsage: "<collection> <slug>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Skip confirmation"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			name, err := requireArg(cmd, 0, "collection")
			if err != nil {
				return err
			}
			eng, err := app.engine(name)
			if err != nil {
				return err
			}
			slug, err := pickSlug(cmd, eng, 1)
			if err != nil {
				return err
			}
			if err := eng.Delete(slug, cmd.Bool("force"), ui.Confirm); err != nil {
				return err
			}
			fmt.Printf("Deleted: %s/%s\n", name, slug)
			return nil
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Commit and push pending collection changes via the AI agent",
		ArgsUsage: "<collection>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Commit message to use verbatim"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			name, err := requireArg(cmd, 0, "collection")
			if err != nil {
				return err
			}
			eng, err := app.engine(name)
			if err != nil {
				return err
			}

			root := eng.Store().Root()
			status, err := vcs.New(root).Status(ctx, eng.DirName()+"/")
			if err != nil {
				return err
			}
			if strings.TrimSpace(status) == "" {
				fmt.Printf("No changes in %s/ to push.\n", eng.DirName())
				return nil
			}
			fmt.Println("Changes detected:")
			fmt.Print(status)

			var prompt string
			if message := cmd.String("message"); message != "" {
				prompt = fmt.Sprintf("Commit and push the changes in %s/ with message: %q", eng.DirName(), message)
			} else {
				prompt = fmt.Sprintf("Commit and push the changes in %s/. Generate an appropriate commit message based on the changes.", eng.DirName())
			}

			client := agent.New(app.cfg.Agent.Command, app.cfg.Agent.Model, app.logger)
			_, err = client.Run(ctx, root, prompt, func(ev agent.StreamEvent) {
				if ev.Result {
					fmt.Printf("\n%s\n", ev.Text)
				} else {
					fmt.Println(ui.Muted.Render(ui.Truncate(ev.Text, 200)))
				}
			})
			return err
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "Move an item from one collection to another, rewriting its front matter",
		ArgsUsage: "<slug> <from> <to>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			slug, err := requireArg(cmd, 0, "slug")
			if err != nil {
				return err
			}
			from, err := requireArg(cmd, 1, "source collection")
			if err != nil {
				return err
			}
			to, err := requireArg(cmd, 2, "target collection")
			if err != nil {
				return err
			}

			var prompter func(string) (string, error)
			if ui.Interactive() {
				prompter = ui.ReadLine
			}
			res, err := migrate.New(app.reg, app.factory, app.logger).Migrate(slug, from, to, prompter)
			if err != nil {
				return err
			}
			fmt.Printf("Migrated: %s -> %s\n", res.SourcePath, ui.Accent.Render(res.TargetPath))
			for field, val := range res.AutoFilled {
				fmt.Printf("  %s %s = %s\n", ui.Muted.Render("auto-filled"), field, val)
			}
			return nil
		},
	}
}

func pullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Fetch tagged email, classify it, and create items",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: string(ingest.ModeAuto), Usage: "auto, interactive, or dry-run"},
			&cli.StringFlag{Name: "address", Usage: "Recipient address to search (overrides config)"},
			&cli.IntFlag{Name: "max", Aliases: []string{"n"}, Usage: "Maximum emails to fetch (overrides config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			fallback := app.cfg.Agent.DefaultCollection
			if app.reg.Get(fallback) == nil {
				return fmt.Errorf("default collection %q: %w", fallback, apperr.ErrUnknownCollection)
			}

			address := cmd.String("address")
			if address == "" {
				address = app.cfg.Mail.Address(app.reg.Get(fallback).EmailSuffix)
			}
			max := int(cmd.Int("max"))
			if max <= 0 {
				max = app.cfg.Mail.MaxResults
			}

			puller := ingest.New(
				app.reg,
				mail.New(app.cfg.Mail.Command, app.logger),
				agent.New(app.cfg.Agent.Command, app.cfg.Agent.Model, app.logger),
				app.factory,
				func(dir string) ingest.Pusher { return vcs.New(dir) },
				app.logger,
				address,
				max,
				fallback,
			)

			hooks := ingest.Hooks{
				Display: func(c ingest.Classified, idx, total int) {
					label := c.Collection
					if c.Duplicate {
						label = "duplicate, skipped"
					}
					ui.ShowCandidate(os.Stdout, c.Candidate, idx-1, total, label)
				},
				Choose: func(c models.EmailCandidate, names []string) (string, bool) {
					return ui.Choose("Where does this go?", names)
				},
				Confirm: func(batch []ingest.Classified) bool {
					return ui.Confirm(fmt.Sprintf("\nCreate %d item(s)?", countNew(batch)))
				},
			}

			sum, err := puller.Pull(ctx, ingest.Mode(cmd.String("mode")), hooks)
			if err != nil {
				return err
			}
			fmt.Printf("\nFetched %d, created %d, skipped %d.\n", sum.Fetched, sum.Created, sum.Skipped)
			return nil
		},
	}
}

// pickSlug resolves the slug argument, falling back to a numbered item
// picker on a terminal when the argument is omitted.
func pickSlug(cmd *cli.Command, eng *collection.Engine, i int) (string, error) {
	if slug := cmd.Args().Get(i); slug != "" {
		return slug, nil
	}
	if !ui.Interactive() {
		return "", fmt.Errorf("missing slug argument: %w", apperr.ErrValidation)
	}
	items, err := eng.List()
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", fmt.Errorf("no items in %s: %w", eng.Config().Name, apperr.ErrNotFound)
	}
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = fmt.Sprintf("%s  %s", it.Slug, ui.Muted.Render(ui.Truncate(it.Title, 50)))
	}
	choice, ok := ui.Choose("Which item?", labels)
	if !ok {
		return "", apperr.ErrCancelled
	}
	slug, _, _ := strings.Cut(choice, " ")
	return slug, nil
}

func countNew(batch []ingest.Classified) int {
	n := 0
	for _, c := range batch {
		if !c.Duplicate {
			n++
		}
	}
	return n
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search across collections",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Usage: "Scope the search to one collection"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum results"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			query, err := requireArg(cmd, 0, "query")
			if err != nil {
				return err
			}
			if scope := cmd.String("collection"); scope != "" && app.reg.Get(scope) == nil {
				return fmt.Errorf("collection %q: %w", scope, apperr.ErrUnknownCollection)
			}

			db, err := app.openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := db.Search(query, cmd.String("collection"), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%s  %s\n", ui.Accent.Render(r.Path), r.Title)
				if r.Snippet != "" {
					fmt.Printf("  %s\n", ui.Muted.Render(r.Snippet))
				}
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the preview HTTP server with live index updates",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return internal.Run(ctx, internal.WithConfig(app.cfg))
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			db, err := app.openIndex()
			if err != nil {
				return err
			}
			defer db.Close()
			return mcpserver.New(app.reg, app.factory, db).ServeStdio()
		},
	}
}
