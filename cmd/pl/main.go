package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"planline/internal/app"
	"planline/internal/domain"
	"planline/internal/engine"
	"planline/internal/repo"
	"planline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pl",
	Short: "Planline CLI",
	Long: `Planline tracks issues and action items and turns them into a working
schedule with critical-path analysis.
- Workspace: a directory holding planline.yml and the .planline database.
- Issues: the main work items; they can depend on each other and carry
  hour estimates and due dates.
- Action items: smaller follow-ups that schedule alongside issues.
- Schedules: snapshots computed from all open items; each task gets
  start/end dates, float, critical-path and risk flags.
- Event log: diary of changes, view with 'pl log tail'.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PLANLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(issueCmd())
	rootCmd.AddCommand(actionCmd())
	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a planline workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if err := app.Init(workspace, projectID); err != nil {
				return err
			}
			fmt.Printf("Initialized planline workspace in %s\n", workspace)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project-id", "", "project identifier for planline.yml")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project status",
		Long:  "The scoreboard: open item counts and the latest schedule summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				issues, err := e.Repo.ListIssues(ctx, repo.IssueFilters{})
				if err != nil {
					return err
				}
				issueCounts := map[string]int{}
				for _, i := range issues {
					issueCounts[i.Status]++
				}
				actions, err := e.Repo.ListActionItems(ctx, "")
				if err != nil {
					return err
				}
				actionCounts := map[string]int{}
				for _, a := range actions {
					actionCounts[a.Status]++
				}
				out := map[string]any{
					"project_id":         e.Config.Project.ID,
					"issue_counts":       issueCounts,
					"action_item_counts": actionCounts,
				}
				latest, err := e.Repo.LatestSchedule(ctx)
				haveSchedule := err == nil
				if err != nil && !errors.Is(err, repo.ErrNotFound) {
					return err
				}
				if haveSchedule {
					out["latest_schedule"] = latest
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Project: %s\n", e.Config.Project.ID)
				fmt.Println("Issues:")
				for status, c := range issueCounts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				fmt.Println("Action items:")
				for status, c := range actionCounts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				if haveSchedule {
					fmt.Printf("Latest schedule: %s (%s -> %s, %d tasks, %d at risk)\n",
						latest.ID, latest.StartDate, latest.EndDate, latest.TotalTasks, latest.RisksCount)
				} else {
					fmt.Println("Latest schedule: none")
				}
				return nil
			})
		},
	}
	return cmd
}

func issueCmd() *cobra.Command {
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Manage issues",
		Long:  "Issues are the main work items. They flow open -> in_progress -> done -> closed, can depend on each other, and carry hour estimates plus optional due dates.",
	}
	issue.AddCommand(issueAddCmd())
	issue.AddCommand(issueListCmd())
	issue.AddCommand(issueGetCmd())
	issue.AddCommand(issueUpdateCmd())
	issue.AddCommand(issueRmCmd())
	return issue
}

func issueAddCmd() *cobra.Command {
	var opts engine.ItemCreateOptions
	var estimate float64
	var dependsOn, tags []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("estimate") {
				opts.EstimateHours = &estimate
			}
			opts.DependsOn = parseRefs(dependsOn)
			opts.Tags = tags
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				i, err := e.CreateIssue(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "issue id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "assignee")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimate in hours")
	cmd.Flags().StringVar(&opts.EstimateSource, "estimate-source", "", "estimate provenance (manual|ai)")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&dependsOn, "depends-on", []string{}, "dependency ref, e.g. issue:abc (repeatable)")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func issueListCmd() *cobra.Command {
	var f repo.IssueFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				issues, err := e.Repo.ListIssues(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(issues)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Assignee", "Estimate", "Due"})
				for _, i := range issues {
					tw.AppendRow(table.Row{i.ID, i.Title, i.Status, strOrEmpty(i.Assignee), hoursOrEmpty(i.EstimateHours), strOrEmpty(i.DueDate)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Assignee, "assignee", "", "assignee filter")
	cmd.Flags().StringVar(&f.Tag, "tag", "", "tag filter")
	return cmd
}

func issueGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				i, err := e.Repo.GetIssue(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
	return cmd
}

func issueUpdateCmd() *cobra.Command {
	var opts engine.ItemUpdateOptions
	var desc, assignee, due string
	var estimate float64
	var dependsOn []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			opts.Force = viper.GetBool("force")
			if cmd.Flags().Changed("description") {
				opts.Description = &desc
			}
			if cmd.Flags().Changed("assignee") {
				opts.Assign = &assignee
			}
			if cmd.Flags().Changed("estimate") {
				opts.EstimateHours = &estimate
			}
			if cmd.Flags().Changed("due") {
				opts.DueDate = &due
			}
			if cmd.Flags().Changed("depends-on") {
				opts.SetDeps = parseRefs(dependsOn)
				opts.ReplaceDeps = true
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				i, err := e.UpdateIssue(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "new title")
	cmd.Flags().StringVar(&opts.Status, "status", "", "new status")
	cmd.Flags().StringVar(&desc, "description", "", "new description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "new assignee")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "new estimate in hours")
	cmd.Flags().StringVar(&opts.EstimateSource, "estimate-source", "", "estimate provenance (manual|ai)")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&dependsOn, "depends-on", []string{}, "replace dependencies (repeatable)")
	return cmd
}

func issueRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteIssue(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func actionCmd() *cobra.Command {
	action := &cobra.Command{
		Use:   "action",
		Short: "Manage action items",
		Long:  "Action items are lightweight follow-ups. They are either open or done, and schedule alongside issues.",
	}
	action.AddCommand(actionAddCmd())
	action.AddCommand(actionListCmd())
	action.AddCommand(actionDoneCmd())
	action.AddCommand(actionRmCmd())
	return action
}

func actionAddCmd() *cobra.Command {
	var opts engine.ItemCreateOptions
	var estimate float64
	var dependsOn, tags []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an action item",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("estimate") {
				opts.EstimateHours = &estimate
			}
			opts.DependsOn = parseRefs(dependsOn)
			opts.Tags = tags
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateActionItem(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "action item id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "assignee")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimate in hours")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&dependsOn, "depends-on", []string{}, "dependency ref, e.g. issue:abc (repeatable)")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func actionListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List action items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListActionItems(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Assignee", "Estimate", "Due"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Title, a.Status, strOrEmpty(a.Assignee), hoursOrEmpty(a.EstimateHours), strOrEmpty(a.DueDate)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (open|done)")
	return cmd
}

func actionDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an action item done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.UpdateActionItem(ctx, engine.ItemUpdateOptions{
					ID:      args[0],
					Status:  "done",
					ActorID: viper.GetString("actor-id"),
					Force:   viper.GetBool("force"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func actionRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an action item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteActionItem(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func commentCmd() *cobra.Command {
	comment := &cobra.Command{Use: "comment", Short: "Comment on items"}
	comment.AddCommand(commentAddCmd())
	comment.AddCommand(commentListCmd())
	comment.AddCommand(commentRmCmd())
	return comment
}

func commentAddCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "add <item-ref>",
		Short: "Add a comment, e.g. pl comment add issue:abc --body '...'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AddComment(ctx, ref, body, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "comment body")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func commentListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <item-ref>",
		Short: "List comments on an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				comments, err := e.Repo.ListComments(ctx, ref)
				if err != nil {
					return err
				}
				return printJSONOrTable(comments)
			})
		},
	}
	return cmd
}

func commentRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <item-ref> <comment-id>",
		Short: "Delete a comment from an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteComment(ctx, ref, args[1], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func tagCmd() *cobra.Command {
	tag := &cobra.Command{Use: "tag", Short: "Tag items"}
	tag.AddCommand(tagAddCmd())
	tag.AddCommand(tagRmCmd())
	return tag
}

func tagAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <item-ref> <tag>",
		Short: "Add a tag to an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.TagItem(ctx, ref, args[1], viper.GetString("actor-id"), false)
			})
		},
	}
	return cmd
}

func tagRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <item-ref> <tag>",
		Short: "Remove a tag from an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.TagItem(ctx, ref, args[1], viper.GetString("actor-id"), true)
			})
		},
	}
	return cmd
}

func scheduleCmd() *cobra.Command {
	sched := &cobra.Command{
		Use:   "schedule",
		Short: "Compute and inspect schedules",
		Long:  "Schedules are computed from all open items: dependency-ordered dates, critical path, float, and due-date risk.",
	}
	sched.AddCommand(scheduleCreateCmd())
	sched.AddCommand(scheduleShowCmd())
	sched.AddCommand(scheduleListCmd())
	return sched
}

func scheduleCreateCmd() *cobra.Command {
	var opts engine.ScheduleCreateOptions
	var includeWeekends bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Compute a schedule from open items",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("include-weekends") {
				opts.IncludeWeekends = &includeWeekends
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, tasks, err := e.CreateSchedule(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"schedule": s, "tasks": tasks})
				}
				printScheduleHeader(s)
				printTimeline(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "start date (YYYY-MM-DD, default today)")
	cmd.Flags().Float64Var(&opts.HoursPerDay, "hours-per-day", 0, "working hours per day (default from config)")
	cmd.Flags().BoolVar(&includeWeekends, "include-weekends", false, "schedule across weekends")
	cmd.Flags().StringVar(&opts.ProjectDeadline, "deadline", "", "project deadline (YYYY-MM-DD)")
	return cmd
}

func scheduleShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a schedule (latest when id omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var (
					s     domain.Schedule
					tasks []domain.ScheduleTask
					err   error
				)
				if len(args) == 1 {
					s, tasks, err = e.Repo.GetSchedule(ctx, args[0])
				} else {
					s, err = e.Repo.LatestSchedule(ctx)
					if err == nil {
						s, tasks, err = e.Repo.GetSchedule(ctx, s.ID)
					}
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"schedule": s, "tasks": tasks})
				}
				printScheduleHeader(s)
				printTimeline(tasks)
				return nil
			})
		},
	}
	return cmd
}

func scheduleListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				schedules, err := e.Repo.ListSchedules(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(schedules)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Created", "Start", "End", "Tasks", "Critical", "Risks"})
				for _, s := range schedules {
					tw.AppendRow(table.Row{s.ID, s.CreatedAt, s.StartDate, s.EndDate, s.TotalTasks, s.CriticalPathTasks, s.RisksCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func printScheduleHeader(s domain.Schedule) {
	fmt.Printf("Schedule %s: %s -> %s (%d tasks, %.0f hours)\n",
		s.ID, s.StartDate, s.EndDate, s.TotalTasks, s.TotalHours)
	fmt.Printf("Critical path: %d tasks, %.0f hours; %d at risk\n",
		s.CriticalPathTasks, s.CriticalPathHours, s.RisksCount)
	if s.HasCycle {
		fmt.Println("WARNING: dependency cycle detected; some tasks have no float")
	}
	if s.DanglingJSON != nil {
		fmt.Println("WARNING: some dependencies reference unknown items and were ignored")
	}
}

func printTimeline(tasks []domain.ScheduleTask) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Item", "Title", "Start", "End", "Days", "Float", "Critical", "Risk"})
	for _, t := range tasks {
		float := ""
		if t.FloatDays != nil {
			float = fmt.Sprintf("%d", *t.FloatDays)
		}
		critical := ""
		if t.IsCriticalPath {
			critical = "*"
		}
		risk := ""
		if t.RiskReason != nil {
			risk = *t.RiskReason
			if t.DaysLate > 0 {
				risk = fmt.Sprintf("%s (+%dd)", risk, t.DaysLate)
			}
		}
		tw.AppendRow(table.Row{t.ItemType + ":" + t.ItemID, t.Title, t.ScheduledStart, t.ScheduledEnd, t.DurationDays, float, critical, risk})
	}
	tw.Render()
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: item changes, comments, tags, and schedules.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.ListEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowActorHeader, devTokens bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			appCtx, err := app.Open(workspace)
			if err != nil {
				return err
			}
			defer appCtx.Close()
			authCfg := server.AuthConfig{
				JWTSecret:        os.Getenv("PLANLINE_JWT_SECRET"),
				AllowActorHeader: allowActorHeader,
				DevTokens:        devTokens,
			}
			if authCfg.JWTSecret == "" && !allowActorHeader {
				return fmt.Errorf("PLANLINE_JWT_SECRET is required for bearer auth (or pass --allow-actor-header for local use)")
			}
			handler, err := server.New(server.Config{Engine: appCtx.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Planline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "accept X-Actor-ID header instead of a bearer token")
	cmd.Flags().BoolVar(&devTokens, "dev-tokens", false, "enable the dev token minting endpoint")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	appCtx, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer appCtx.Close()
	return fn(ctx, appCtx.Engine)
}

func parseRef(s string) (domain.ItemRef, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok || typ == "" || id == "" {
		return domain.ItemRef{}, fmt.Errorf("invalid item ref %q, want type:id (e.g. issue:abc)", s)
	}
	return domain.ItemRef{Type: typ, ID: id}, nil
}

func parseRefs(items []string) []domain.ItemRef {
	var out []domain.ItemRef
	for _, s := range items {
		if ref, err := parseRef(s); err == nil {
			out = append(out, ref)
		} else if s != "" {
			// Bare ids default to issue refs.
			out = append(out, domain.ItemRef{Type: "issue", ID: s})
		}
	}
	return out
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func hoursOrEmpty(h *float64) string {
	if h == nil {
		return ""
	}
	return fmt.Sprintf("%.0fh", *h)
}
