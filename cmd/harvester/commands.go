package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/crawl"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/server"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/github"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/localrepo"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/toolshed"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// runApp builds the components for a command and closes them afterwards
func runApp(opts *cliOptions, fn func(a *app) error) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// apiRoot accepts a content-API URL or a github.com web URL
func apiRoot(raw, apiURL string) (string, error) {
	if _, err := github.ParseContentsURL(raw); err == nil {
		return raw, nil
	}
	return github.ConvertRemoteURL(apiURL, raw)
}

func newRepoCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repo <url>",
		Short: "Crawl every tool folder of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(a *app) error {
				root, err := apiRoot(args[0], opts.cfg.GitHub.APIURL)
				if err != nil {
					return err
				}
				res, err := a.scheduler(true).CrawlRepository(cmd.Context(), root)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res, opts.pretty)
			})
		},
	}
}

func newFolderCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "folder <content-url>...",
		Short: "Crawl folders and every tool root below them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(a *app) error {
				results, err := a.scheduler(false).CrawlFolders(cmd.Context(), args)
				if err != nil {
					return err
				}
				return writeFolderResults(cmd.OutOrStdout(), results, opts.pretty)
			})
		},
	}
}

func newToolCmd(opts *cliOptions) *cobra.Command {
	var revision string
	cmd := &cobra.Command{
		Use:   "tool <toolshed-reference>",
		Short: "Resolve a ToolShed tool reference to its definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := toolshed.ParseReference(args[0])
			if err != nil {
				return err
			}
			return runApp(opts, func(a *app) error {
				tool, err := a.toolResolver().ResolveTool(cmd.Context(), ref, revision)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), tool, opts.pretty)
			})
		},
	}
	cmd.Flags().StringVar(&revision, "revision", "", "changeset revision (defaults to the reference version)")
	return cmd
}

func newWorkflowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "workflow <file.ga|->",
		Short: "Resolve the boundary tools of a Galaxy workflow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return runApp(opts, func(a *app) error {
				res, err := a.harvester().ResolveWorkflow(cmd.Context(), data)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res, opts.pretty)
			})
		},
	}
}

func newHubCmd(opts *cliOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Resolve workflows published on the Workflow Hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(opts, func(a *app) error {
				out := cmd.OutOrStdout()
				return a.harvester().HarvestWorkflows(cmd.Context(), limit, func(res *types.WorkflowResolution) error {
					return writeJSON(out, res, opts.pretty)
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of workflows (0 reads every page)")
	return cmd
}

func newSeedCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Record every ToolShed registry repository as pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(opts, func(a *app) error {
				if err := a.requireStore(); err != nil {
					return err
				}
				h := a.harvester()
				roots, err := h.UniqueRepositories(cmd.Context())
				if err != nil {
					return err
				}
				added, err := h.SeedRepositories(cmd.Context(), roots)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int{"repositories": len(roots), "added": added}, opts.pretty)
			})
		},
	}
}

func newPendingCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Crawl every pending repository record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(opts, func(a *app) error {
				if err := a.requireStore(); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				sum, err := a.harvester().ProcessPending(cmd.Context(), func(res *crawl.RepositoryResult) error {
					return writeJSON(out, res, opts.pretty)
				})
				opts.logger.Info("Processed pending repositories", zap.Stringer("summary", sum))
				return err
			})
		},
	}
}

func newLocalCmd(opts *cliOptions) *cobra.Command {
	var (
		root     string
		ref      string
		excludes []string
		listOnly bool
	)
	cmd := &cobra.Command{
		Use:   "local <checkout>",
		Short: "Index a local checkout and crawl its tool folders remotely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var base string
			if root != "" {
				var err error
				if root, err = apiRoot(root, opts.cfg.GitHub.APIURL); err != nil {
					return err
				}
				parsed, err := github.ParseContentsURL(root)
				if err != nil {
					return err
				}
				base = parsed.Path
			}
			folders, err := localrepo.ToolFolders(cmd.Context(), args[0], localrepo.Options{
				BasePath: base,
				Excludes: append(excludes, opts.cfg.Crawl.Exclude...),
			})
			if err != nil {
				return err
			}
			if listOnly || root == "" {
				return writeJSON(cmd.OutOrStdout(), folders, opts.pretty)
			}

			urls, err := localrepo.FolderURLs(root, folders, ref)
			if err != nil {
				return err
			}
			return runApp(opts, func(a *app) error {
				results, err := a.scheduler(true).CrawlFolders(cmd.Context(), urls)
				if err != nil {
					return err
				}
				return writeFolderResults(cmd.OutOrStdout(), results, opts.pretty)
			})
		},
	}
	cmd.Flags().StringVar(&root, "remote", "", "repository the checkout was cloned from (content-API or github.com URL)")
	cmd.Flags().StringVar(&ref, "ref", "", "branch to read files from")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "doublestar patterns of folders to skip")
	cmd.Flags().BoolVar(&listOnly, "list", false, "only print the tool folders found")
	return cmd
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and crawl records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				opts.cfg.Server.Port = port
			}
			return runApp(opts, func(a *app) error {
				if err := a.requireStore(); err != nil {
					return err
				}
				srv := server.NewServer(opts.cfg, a.store, a.metrics, opts.logger.Component("server"))
				return srv.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to PORT)")
	return cmd
}

func writeFolderResults(w io.Writer, results []*crawl.FolderResult, pretty bool) error {
	for _, res := range results {
		if err := writeJSON(w, res, pretty); err != nil {
			return err
		}
	}
	return nil
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if strings.TrimSpace(name) == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return data, nil
}
