package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/format"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// session is an open runtime for one command.
type session struct {
	service *core.Service
	queue   interface {
		Stop(ctx context.Context) error
	}
	siteURL string
	close   func()
}

// finish waits for pipelines triggered by the command, then releases the
// runtime.
func (s *session) finish(ctx context.Context) error {
	defer s.close()
	return s.queue.Stop(ctx)
}

type opener func(ctx context.Context) (*session, error)

// withSession opens a session, runs fn, and drains the queue before
// returning so triggered runs complete inside the command.
func withSession(open opener, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd.Context())
		if err != nil {
			return err
		}
		runErr := fn(cmd, s, args)
		if err := s.finish(cmd.Context()); err != nil && runErr == nil {
			runErr = fmt.Errorf("waiting for queued runs: %w", err)
		}
		return runErr
	}
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "jobctl",
		Short:         "Operate import and export jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newModelsCmd(open),
		newImportCmd(open),
		newExportCmd(open),
		newStatusCmd(open),
	)
	return root
}

// --- models ---

func newModelsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models",
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			out := cmd.OutOrStdout()
			for _, m := range s.service.Registry().All() {
				fmt.Fprintf(out, "%s.%s\t%s\n", m.AppLabel, m.Name, strings.Join(m.Resource.Headers(), ","))
			}
			return nil
		}),
	}
}

// --- import ---

func newImportCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Manage import jobs",
	}

	create := &cobra.Command{
		Use:   "create <file>",
		Short: "Upload a file and run the validation dry run",
		Long: `Upload a file and run the validation dry run.

The format is taken from --format or guessed from the file extension.

Examples:
  jobctl import create --model customer customers.csv
  jobctl import create --model customer --format text/yaml export.txt`,
		Args: cobra.ExactArgs(1),
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			model, _ := cmd.Flags().GetString("model")
			contentType, _ := cmd.Flags().GetString("format")
			author, _ := cmd.Flags().GetString("author")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			if contentType == "" {
				if contentType, err = formatForFile(args[0]); err != nil {
					return err
				}
			}

			job, err := s.service.CreateImportJob(cmd.Context(), core.ImportRequest{
				Model:    model,
				Format:   contentType,
				FileName: filepath.Base(args[0]),
				Data:     data,
				Author:   author,
			})
			if err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Created import job %s", job.ID)
			printStatus(cmd.ErrOrStderr(), "Next", "jobctl import show %s", job.ID)
			fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			return nil
		}),
	}
	create.Flags().String("model", "", "target model (required)")
	create.Flags().String("format", "", "content type of the file")
	create.Flags().String("author", os.Getenv("USER"), "recorded as the job author")
	_ = create.MarkFlagRequired("model")

	run := &cobra.Command{
		Use:   "run <id>",
		Short: "Run the import pipeline for a job now",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			raiseErrors, _ := cmd.Flags().GetBool("raise-errors")

			if err := s.service.RunImportJob(cmd.Context(), id, dryRun, raiseErrors); err != nil {
				return err
			}
			job, err := s.service.GetImportJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			printStatus(cmd.ErrOrStderr(), "Status", "%s", job.JobStatus)
			if job.Errors != "" {
				fmt.Fprint(cmd.OutOrStdout(), job.Errors)
			}
			return nil
		}),
	}
	run.Flags().Bool("dry-run", false, "validate without committing")
	run.Flags().Bool("raise-errors", false, "abort on the first row error")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an import job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := s.service.GetImportJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent import jobs",
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			jobs, err := s.service.ListImportJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, j := range jobs {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", j.ID, j.Model, j.File, j.JobStatus)
			}
			return nil
		}),
	}
	list.Flags().Int("limit", 20, "maximum number of jobs")

	cmd.AddCommand(create, run, show, list)
	return cmd
}

// --- export ---

func newExportCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Manage export jobs",
	}

	create := &cobra.Command{
		Use:   "create <key>...",
		Short: "Export records by key",
		Long: `Export records by key. The export runs before the command returns.

Examples:
  jobctl export create --model customer c1 c2 c3
  jobctl export create --model customer --resource names --format application/json c1
  jobctl export create --model customer --email ops@example.com c1`,
		Args: cobra.MinimumNArgs(1),
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			model, _ := cmd.Flags().GetString("model")
			res, _ := cmd.Flags().GetString("resource")
			contentType, _ := cmd.Flags().GetString("format")
			owner, _ := cmd.Flags().GetString("owner")
			email, _ := cmd.Flags().GetString("email")

			job, err := s.service.CreateExportJob(cmd.Context(), core.ExportRequest{
				Model:             model,
				Resource:          res,
				Format:            contentType,
				Keys:              args,
				EmailOnCompletion: email != "",
				SiteOfOrigin:      s.siteURL,
				Owner:             owner,
				OwnerEmail:        email,
			})
			if err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Created export job %s", job.ID)
			fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			return nil
		}),
	}
	create.Flags().String("model", "", "model to export (required)")
	create.Flags().String("resource", "", "named export resource")
	create.Flags().String("format", "text/csv", "content type of the export file")
	create.Flags().String("owner", os.Getenv("USER"), "recorded as the job owner")
	create.Flags().String("email", "", "send a completion email to this address")
	_ = create.MarkFlagRequired("model")

	run := &cobra.Command{
		Use:   "run <id>",
		Short: "Run the export pipeline for a job now",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := s.service.RunExportJob(cmd.Context(), id); err != nil {
				return err
			}
			job, err := s.service.GetExportJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			printStatus(cmd.ErrOrStderr(), "Status", "%s", job.JobStatus)
			fmt.Fprintln(cmd.OutOrStdout(), s.service.FileURL(job.File))
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an export job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := s.service.GetExportJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent export jobs",
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			jobs, err := s.service.ListExportJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, j := range jobs {
				fmt.Fprintf(out, "%s\t%s.%s\t%s\t%s\n", j.ID, j.AppLabel, j.Model, j.File, j.JobStatus)
			}
			return nil
		}),
	}
	list.Flags().Int("limit", 20, "maximum number of jobs")

	cmd.AddCommand(create, run, show, list)
	return cmd
}

// --- status ---

func newStatusCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:       "status <import|export> <id>",
		Short:     "Print the latest status of a job",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(core.DirImport), string(core.DirExport)},
		RunE: withSession(open, func(cmd *cobra.Command, s *session, args []string) error {
			dir := core.Direction(args[0])
			if dir != core.DirImport && dir != core.DirExport {
				return fmt.Errorf("unknown job direction %q (want import or export)", args[0])
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			status, err := s.service.Status(cmd.Context(), dir, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		}),
	}
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}

// formatForFile picks the import format whose extension matches path.
func formatForFile(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "tab":
		ext = "tsv"
	case "yml":
		ext = "yaml"
	}
	for _, c := range format.ImportChoices() {
		f, err := format.Resolve(c.ContentType)
		if err != nil {
			continue
		}
		if f.Extension() == ext {
			return f.ContentType(), nil
		}
	}
	return "", errors.New("cannot guess the format from the file extension; pass --format")
}
