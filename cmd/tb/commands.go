package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/filter"
	"taskboard/internal/migrate"
	"taskboard/internal/transition"
)

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func printTasks(tasks []domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(tasks)
	}
	tw := newTable("ID", "Title", "Status", "Priority", "Due", "Tags")
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = *t.DueDate
		}
		tw.AppendRow(table.Row{t.ID, t.Title, transition.Label(t.Status), t.Priority, due, strings.Join(t.Tags, ",")})
	}
	tw.Render()
	return nil
}

func printBoards(boards []domain.Board) error {
	if viper.GetBool("json") {
		return printJSON(boards)
	}
	tw := newTable("ID", "Name")
	for _, b := range boards {
		tw.AppendRow(table.Row{b.ID, b.Name})
	}
	tw.Render()
	return nil
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "board", Short: "Manage boards"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.Boards(ctx)
				if err != nil {
					return err
				}
				return printBoards(items)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a board",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				b, err := a.Engine.AddBoard(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printBoards([]domain.Board{b})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove ID",
		Short: "Delete a board and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.RemoveBoard(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("removed board", args[0])
				return nil
			})
		},
	})
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.PersistentFlags().StringP("board", "b", domain.DefaultBoardID, "board id")
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskMoveCmd())
	cmd.AddCommand(taskDropCmd())
	cmd.AddCommand(taskDeleteCmd())
	return cmd
}

func boardFlag(cmd *cobra.Command) string {
	b, _ := cmd.Flags().GetString("board")
	return b
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks of a board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				tasks, err := a.Engine.OpenBoard(ctx, boardFlag(cmd))
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
}

type taskFields struct {
	title, description, status, due, priority string
	tags                                      []string
}

func (f *taskFields) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "title")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.status, "status", "", "todo|inprogress|done")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low|medium|high")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
}

func taskAddCmd() *cobra.Command {
	var f taskFields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := domain.TaskInput{Title: f.title, Description: f.description, Tags: f.tags}
			if f.status != "" {
				s, err := domain.ParseStatus(f.status)
				if err != nil {
					return err
				}
				in.Status = s
			}
			if f.priority != "" {
				p, err := domain.ParsePriority(f.priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			if f.due != "" {
				in.DueDate = &f.due
			}
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.AddTask(ctx, boardFlag(cmd), in)
				if err != nil {
					return err
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var f taskFields
	var clearDue bool
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &f.title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &f.description
			}
			if cmd.Flags().Changed("status") {
				s, err := domain.ParseStatus(f.status)
				if err != nil {
					return err
				}
				patch.Status = &s
			}
			if cmd.Flags().Changed("priority") {
				p, err := domain.ParsePriority(f.priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if cmd.Flags().Changed("tag") {
				patch.Tags = &f.tags
			}
			if cmd.Flags().Changed("due") {
				patch.DueDate = &f.due
			}
			patch.ClearDueDate = clearDue
			if patch.IsZero() {
				return fmt.Errorf("nothing to update")
			}
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.UpdateTask(ctx, boardFlag(cmd), args[0], patch)
				if err != nil {
					return err
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move ID left|right",
		Short: "Move a task one column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := transition.ParseDirection(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				t, moved, err := a.Engine.MoveTask(ctx, boardFlag(cmd), args[0], dir)
				if err != nil {
					return err
				}
				if !moved && !viper.GetBool("json") {
					fmt.Printf("task %s is already in %s\n", t.ID, transition.Label(t.Status))
					return nil
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
}

func taskDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop STATUS ID...",
		Short: "Drop tasks into a column",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			column, err := domain.ParseStatus(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				changed, err := a.Engine.DropTasks(ctx, boardFlag(cmd), column, args[1:])
				if err != nil {
					return err
				}
				return printTasks(changed)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.DeleteTask(ctx, boardFlag(cmd), args[0]); err != nil {
					return err
				}
				fmt.Println("deleted task", args[0])
				return nil
			})
		},
	}
}

func searchCmd() *cobra.Command {
	var board, status, priority, due string
	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search a board by text and filters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			filters := filter.Filters{}
			for dim, v := range map[string]string{filter.DimStatus: status, filter.DimPriority: priority, filter.DimDueDate: due} {
				if v != "" {
					filters = filters.Set(dim, v)
				}
			}
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				return printTasks(a.Engine.Search(ctx, board, query, filters))
			})
		},
	}
	cmd.Flags().StringVarP(&board, "board", "b", domain.DefaultBoardID, "board id")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&due, "due", "", "today|overdue")
	return cmd
}

func syncCmd() *cobra.Command {
	var board string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Cloud sync for the signed-in user",
	}
	cmd.PersistentFlags().StringVarP(&board, "board", "b", domain.DefaultBoardID, "board id")
	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Upload a board's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				n, err := a.Engine.PushBoard(ctx, board)
				if err != nil {
					return fmt.Errorf("%s: %w", a.Engine.SyncStatus(), err)
				}
				fmt.Printf("%s (%d tasks)\n", a.Engine.SyncStatus(), n)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Replace a board's tasks with the cloud copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				tasks, err := a.Engine.PullBoard(ctx, board)
				if err != nil {
					return fmt.Errorf("%s: %w", a.Engine.SyncStatus(), err)
				}
				return printTasks(tasks)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "boards",
		Short: "Upload the board list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.SyncBoards(ctx); err != nil {
					return fmt.Errorf("%s: %w", a.Engine.SyncStatus(), err)
				}
				fmt.Println(a.Engine.SyncStatus())
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore",
		Short: "Replace the board list with the cloud copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				if _, err := a.Engine.RestoreBoards(ctx); err != nil {
					return fmt.Errorf("%s: %w", a.Engine.SyncStatus(), err)
				}
				items, err := a.Engine.Boards(ctx)
				if err != nil {
					return err
				}
				return printBoards(items)
			})
		},
	})
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync user, last board sync and workspace storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				last, err := a.Engine.LastSyncTime(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{"status": a.Engine.SyncStatus(), "user_id": a.Engine.UserID()}
				if !last.IsZero() {
					out["last_sync_time"] = last.Format(time.RFC3339)
				}
				out["database"] = db.Path(viper.GetString("workspace"))
				if v, err := migrate.Version(ctx, a.DB); err == nil {
					out["schema_version"] = v
				}
				if a.Config.Storage.Backend == config.StorageSQLite {
					keys, err := a.Repo.Keys(ctx, "tasks:")
					if err != nil {
						return err
					}
					out["stored_boards"] = len(keys)
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				tw := newTable("Field", "Value")
				for _, k := range []string{"status", "user_id", "last_sync_time", "database", "schema_version", "stored_boards"} {
					tw.AppendRow(table.Row{k, out[k]})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	var board string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Task statistics for one board or all boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				var stats any
				if board != "" {
					stats = a.Engine.Stats(ctx, board)
				} else {
					items, err := a.Engine.Boards(ctx)
					if err != nil {
						return err
					}
					for _, b := range items {
						a.Engine.Stats(ctx, b.ID)
					}
					stats = a.Engine.AllStats()
				}
				return printJSON(stats)
			})
		},
	}
	cmd.Flags().StringVarP(&board, "board", "b", "", "board id (default: all boards)")
	return cmd
}
