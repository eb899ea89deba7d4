package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brequin/brequin/curriculum/db"
	"github.com/brequin/brequin/curriculum/generate"
	"github.com/brequin/brequin/curriculum/script"
)

func location(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

// loadScript reads and parses a script, logging what the parse dropped.
func (a *app) loadScript(cmd *cobra.Command, args []string) (string, *script.Graph, script.Report, error) {
	text, err := a.loader(cmd).Load(cmd.Context(), location(args))
	if err != nil {
		return "", nil, script.Report{}, err
	}

	graph, report := script.Parse(text)
	a.logReport(report)
	return text, graph, report, nil
}

func (a *app) logReport(report script.Report) {
	a.log.Debug("Parsed script", "entities", report.Entities, "relations", report.Relations)
	for _, skip := range report.Skipped {
		a.log.Debug("Skipped tuple", "offset", skip.Offset, "reason", skip.Reason)
	}
	if len(report.Skipped) > 0 {
		a.log.Warn("Some tuples could not be read", "skipped", len(report.Skipped))
	}
	if len(report.Duplicates) > 0 {
		a.log.Warn("Duplicate temp ids, last declaration kept", "tempIds", report.Duplicates)
	}
	if len(report.Dangling) > 0 {
		a.log.Warn("Relations reference unknown temp ids", "dropped", len(report.Dangling))
	}
}

func evaluableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluable [file|url|-]",
		Short: "Print the competencies and learning outcomes with their evaluation criteria",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, graph, _, err := a.loadScript(cmd, args)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.cfg.OutputFormat, graph.EvaluableItems())
		},
	}
}

func itemsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "items [file|url|-]",
		Short: "Print the competency, criterion and knowledge names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _, _, err := a.loadScript(cmd, args)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.cfg.OutputFormat, script.FlatItems(text))
		},
	}
}

type importResult struct {
	Script    string        `json:"script" yaml:"script"`
	Evaluable string        `json:"evaluable" yaml:"evaluable"`
	Items     string        `json:"items" yaml:"items"`
	Entities  int           `json:"entities" yaml:"entities"`
	Relations int           `json:"relations" yaml:"relations"`
	Report    script.Report `json:"report" yaml:"report"`
}

func importCmd(a *app) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "import [file|url|-]",
		Short: "Store a script, its entity graph and the items read from it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			text, graph, report, err := a.loadScript(cmd, args)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if title == "" {
				title = titleFor(location(args))
			}
			result, err := a.importScript(ctx, store, title, text, graph, report)
			if err != nil {
				return err
			}

			a.log.Info("Imported script", "id", result.Script, "entities", result.Entities, "relations", result.Relations)
			return render(cmd.OutOrStdout(), a.cfg.OutputFormat, result)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title of the stored records (default: source name)")
	return cmd
}

// importScript stores the graph and then the script, evaluable-item and
// curricular-item records. The store has no transaction spanning them, so when
// a record fails the records already created are deleted again and the stored
// graph is reported as left behind.
func (a *app) importScript(ctx context.Context, store db.Store, title, text string, graph *script.Graph, report script.Report) (importResult, error) {
	result := importResult{Report: report}

	ids, err := store.InsertGraph(ctx, a.cfg.User, graph.Entities(), graph.Relations())
	if err != nil {
		return importResult{}, err
	}
	result.Entities = len(ids.Entities)
	result.Relations = ids.Relations

	evaluable, err := json.Marshal(graph.EvaluableItems())
	if err != nil {
		return importResult{}, err
	}
	items, err := json.Marshal(script.FlatItems(text))
	if err != nil {
		return importResult{}, err
	}

	records := []struct {
		collection string
		body       string
		id         *string
	}{
		{db.CollectionScripts, text, &result.Script},
		{db.CollectionEvaluableItems, string(evaluable), &result.Evaluable},
		{db.CollectionCurricularItems, string(items), &result.Items},
	}

	var created []string
	for _, record := range records {
		document, err := store.CreateDocument(ctx, db.Document{
			UserId:     a.cfg.User,
			Collection: record.collection,
			Title:      title,
			Body:       record.body,
		})
		if err != nil {
			for _, id := range created {
				if deleteErr := store.DeleteDocument(ctx, a.cfg.User, id); deleteErr != nil {
					a.log.Warn("Could not remove record of failed import", "id", id, "error", deleteErr)
				}
			}
			a.log.Error("Import incomplete, entity graph left in store",
				"entities", result.Entities, "relations", result.Relations, "collection", record.collection, "error", err)
			return importResult{}, fmt.Errorf("import incomplete: %d entities stored but %s record failed: %w",
				result.Entities, record.collection, err)
		}
		*record.id = document.Id
		created = append(created, document.Id)
	}

	return result, nil
}

func titleFor(location string) string {
	if location == "-" {
		return "stdin"
	}
	if strings.Contains(location, "://") {
		return location
	}
	return filepath.Base(location)
}

// curriculumInput reads a curriculum document. PDFs are attached to the
// request as they are; text is inlined into the prompt.
func curriculumInput(path string, input *generate.ScriptInput) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(content))
	if err != nil {
		return err
	}
	switch {
	case mediaType == "application/pdf":
		input.Document = content
		input.MediaType = mediaType
	case strings.HasPrefix(mediaType, "text/"):
		input.Curriculum = string(content)
	default:
		return fmt.Errorf("%s: unsupported curriculum type %s", path, mediaType)
	}
	return nil
}

func generateCmd(a *app) *cobra.Command {
	var (
		input generate.ScriptInput
		save  bool
		title string
	)

	cmd := &cobra.Command{
		Use:   "generate <curriculum-file>",
		Short: "Ask the AI model to write the SQL script of a curriculum document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := curriculumInput(args[0], &input); err != nil {
				return err
			}

			generator, err := a.newGenerator(a.cfg)
			if err != nil {
				return a.generationError(err)
			}

			a.log.Info("Generating script", "curriculum", args[0], "model", a.cfg.AIModel)
			sql, err := generate.Script(ctx, generator, input)
			if err != nil {
				return a.generationError(err)
			}

			_, report := script.Parse(sql)
			a.logReport(report)

			if save {
				store, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer store.Close()

				if title == "" {
					title = filepath.Base(args[0])
				}
				document, err := store.CreateDocument(ctx, db.Document{
					UserId:     a.cfg.User,
					Collection: db.CollectionScripts,
					Title:      title,
					Body:       sql,
				})
				if err != nil {
					return err
				}
				a.log.Info("Saved script", "id", document.Id)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.Subject, "subject", "", "Subject name")
	flags.StringVar(&input.Stage, "stage", "", "Stage or course, e.g. \"1º ESO\"")
	flags.StringVar(&input.Notes, "notes", "", "Extra instructions for the model")
	flags.BoolVar(&save, "save", false, "Store the script in the scripts collection")
	flags.StringVarP(&title, "title", "t", "", "Title of the stored script (default: file name)")
	return cmd
}

func artifactCmd(a *app) *cobra.Command {
	var input generate.ArtifactInput

	cmd := &cobra.Command{
		Use:       "artifact <kind> [file|url|-]",
		Short:     "Generate a teaching artifact from the evaluable items of a script",
		Long:      "Kinds: " + strings.Join(generate.ArtifactKinds(), ", "),
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: generate.ArtifactKinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, graph, _, err := a.loadScript(cmd, args[1:])
			if err != nil {
				return err
			}

			input.Kind = args[0]
			input.Items = graph.EvaluableItems()
			input.Knowledge = script.FlatItems(text).Knowledge

			// Fail on a bad kind or an empty script before building a client.
			if _, err := generate.ArtifactPrompt(input); err != nil {
				return err
			}

			generator, err := a.newGenerator(a.cfg)
			if err != nil {
				return a.generationError(err)
			}

			a.log.Info("Generating artifact", "kind", input.Kind, "items", len(input.Items))
			artifact, err := generate.Artifact(cmd.Context(), generator, input)
			if err != nil {
				return a.generationError(err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), artifact)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.Subject, "subject", "", "Subject name")
	flags.StringVar(&input.Notes, "notes", "", "Extra instructions for the model")
	return cmd
}

func (a *app) generationError(err error) error {
	a.log.Error("Generation failed", "error", err)
	return errors.New(generate.Describe(err))
}

func scriptsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "Manage stored scripts",
	}

	var collection string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored records of the configured user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			documents, err := store.ListDocuments(cmd.Context(), collection, a.cfg.User)
			if err != nil {
				return err
			}
			if documents == nil {
				documents = []db.Document{}
			}
			return render(cmd.OutOrStdout(), a.cfg.OutputFormat, documents)
		},
	}
	list.Flags().StringVar(&collection, "collection", db.CollectionScripts, "Collection to list")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the body of a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			document, err := store.GetDocument(cmd.Context(), a.cfg.User, args[0])
			if err != nil {
				return fmt.Errorf("record %s: %w", args[0], err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), document.Body)
			return err
		},
	}

	remove := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete stored records",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			for _, id := range args {
				if err := store.DeleteDocument(cmd.Context(), a.cfg.User, id); err != nil {
					return fmt.Errorf("record %s: %w", id, err)
				}
				a.log.Info("Deleted record", "id", id)
			}
			return nil
		},
	}

	var title, bodyFile string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a stored record or replace its body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" && bodyFile == "" {
				return errors.New("nothing to update: pass --title or --file")
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			document, err := store.GetDocument(cmd.Context(), a.cfg.User, args[0])
			if err != nil {
				return fmt.Errorf("record %s: %w", args[0], err)
			}
			if title != "" {
				document.Title = title
			}
			if bodyFile != "" {
				body, err := a.loader(cmd).Load(cmd.Context(), bodyFile)
				if err != nil {
					return err
				}
				document.Body = body
			}

			document, err = store.UpdateDocument(cmd.Context(), document)
			if err != nil {
				return fmt.Errorf("record %s: %w", args[0], err)
			}
			a.log.Info("Updated record", "id", document.Id)
			return render(cmd.OutOrStdout(), a.cfg.OutputFormat, document)
		},
	}
	update.Flags().StringVarP(&title, "title", "t", "", "New title")
	update.Flags().StringVar(&bodyFile, "file", "", "Replace the body with this file, URL or - for stdin")

	cmd.AddCommand(list, show, update, remove)
	return cmd
}
