// Package main is the terminal frontend for the Padosi society governance
// API. It wires the transport client, the credential store, and the entity
// stores together and maps subcommands onto store operations.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/api"
	"github.com/aawaaz/padosi-client/internal/config"
	"github.com/aawaaz/padosi-client/internal/credstore"
	"github.com/aawaaz/padosi-client/internal/models"
	"github.com/aawaaz/padosi-client/internal/store"
)

const usage = `Usage: padosi <command> [flags]

Commands:
  login          Sign in (--email, --password)
  logout         Sign out and clear the stored credential
  whoami         Show the current profile
  complaints     List complaints (--status, --category, --search, --page, --mine)
  show <id>      Show one complaint with its comments
  new            File a complaint (--title, --category, --description, --anonymous)
  vote <id> <support|oppose>   Cast a vote (--named to vote publicly)
  unvote <id>    Withdraw your vote
  comment <id> <text>          Comment on a complaint (--anonymous)
  notifications  List notifications (--unread)
  read <id>      Mark a notification read (--all for every notification)
`

type app struct {
	session       *store.Session
	complaints    *store.Complaints
	notifications *store.Notifications
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	creds := credstore.NewFileStore(cfg.CredentialsFile)
	client := api.NewClient(cfg.APIBaseURL, api.Options{
		Timeout: cfg.RequestTimeout,
		Tokens:  creds,
		Logger:  sugar,
	})

	session := store.NewSession(client, creds, sugar)
	session.Wire()
	session.OnNavigate(func(intent store.NavIntent) {
		if intent.Route == store.RouteLogin {
			fmt.Fprintln(os.Stderr, "session expired, run `padosi login`")
		}
	})

	a := &app{
		session:       session,
		complaints:    store.NewComplaints(client, sugar),
		notifications: store.NewNotifications(client, sugar),
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		a.session.Logout()
		a.complaints.Reset()
		a.notifications.Reset()
		fmt.Println("signed out")
		return nil
	case "whoami":
		return a.cmdWhoami(ctx)
	case "complaints":
		return a.cmdComplaints(ctx, args)
	case "show":
		return a.cmdShow(ctx, args)
	case "new":
		return a.cmdNew(ctx, args)
	case "vote":
		return a.cmdVote(ctx, args)
	case "unvote":
		return a.cmdUnvote(ctx, args)
	case "comment":
		return a.cmdComment(ctx, args)
	case "notifications":
		return a.cmdNotifications(ctx, args)
	case "read":
		return a.cmdRead(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("--email and --password are required")
	}

	if err := a.session.Login(ctx, models.LoginRequest{Email: *email, Password: *password}); err != nil {
		return fmt.Errorf("%s", a.session.Err())
	}
	user := a.session.User()
	fmt.Printf("signed in as %s (karma %d)\n", user.FullName, a.session.KarmaScore())
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if err := a.session.InitializeAuth(ctx); err != nil {
		return fmt.Errorf("not signed in")
	}
	user := a.session.User()
	if user == nil {
		return fmt.Errorf("not signed in")
	}
	fmt.Printf("%s, flat %s", user.FullName, user.FlatNumber)
	if soc := a.session.Society(); soc != nil {
		fmt.Printf(", %s", soc.Name)
	}
	fmt.Printf("\nroles: %s  karma: %d\n", strings.Join(user.Roles, ", "), a.session.KarmaScore())
	return nil
}

func (a *app) cmdComplaints(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("complaints", pflag.ContinueOnError)
	status := flags.String("status", "", "filter by status")
	category := flags.String("category", "", "filter by category")
	search := flags.String("search", "", "full-text filter")
	page := flags.Int("page", 1, "page number")
	mine := flags.Bool("mine", false, "only my complaints")
	if err := flags.Parse(args); err != nil {
		return err
	}

	a.complaints.SetFilters(map[string]string{
		"status":   *status,
		"category": *category,
		"search":   *search,
	})
	a.complaints.SetPage(*page)

	override := map[string]string{}
	if *mine {
		override["my_complaints"] = "true"
	}
	if err := a.complaints.FetchList(ctx, override); err != nil {
		return fmt.Errorf("%s", a.complaints.Err())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRI\tVOTES\tTITLE")
	for _, c := range a.complaints.Items() {
		fmt.Fprintf(w, "%d\t%s\t%s\t+%d/-%d\t%s\n",
			c.ID, c.Status, c.Priority, c.SupportCount, c.OpposeCount, c.Title)
	}
	w.Flush()

	p := a.complaints.Pagination()
	fmt.Printf("page %d of %d (%d total, %d open on this page)\n",
		p.Page, p.Pages, p.Total, a.complaints.OpenCount())
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	if err := a.complaints.FetchOne(ctx, id); err != nil {
		return fmt.Errorf("%s", a.complaints.Err())
	}
	c := a.complaints.Current()
	fmt.Printf("#%d %s [%s/%s]\n", c.ID, c.Title, c.Status, c.Priority)
	if c.Description != "" {
		fmt.Println(c.Description)
	}
	fmt.Printf("support %d, oppose %d", c.SupportCount, c.OpposeCount)
	if c.UserVote != "" {
		fmt.Printf(" (you: %s)", c.UserVote)
	}
	fmt.Printf("\ncomments (%d):\n", c.CommentsCount)
	for _, cm := range c.Comments {
		name := "anonymous"
		if cm.User != nil {
			name = cm.User.DisplayName
		}
		fmt.Printf("  [%d] %s: %s\n", cm.ID, name, cm.CommentText)
	}
	return nil
}

func (a *app) cmdNew(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("new", pflag.ContinueOnError)
	title := flags.String("title", "", "complaint title")
	category := flags.String("category", "", "complaint category")
	description := flags.String("description", "", "details")
	priority := flags.String("priority", "", "low|medium|high|urgent")
	accusedFlat := flags.String("accused-flat", "", "flat the complaint concerns")
	anonymous := flags.Bool("anonymous", false, "file anonymously")
	if err := flags.Parse(args); err != nil {
		return err
	}

	complaint, err := a.complaints.Create(ctx, models.ComplaintDraft{
		Title:       *title,
		Description: *description,
		Category:    *category,
		Priority:    *priority,
		AccusedFlat: *accusedFlat,
		IsAnonymous: *anonymous,
	})
	if err != nil {
		return fmt.Errorf("%s", a.complaints.Err())
	}
	fmt.Printf("filed complaint #%d\n", complaint.ID)
	return nil
}

func (a *app) cmdVote(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("vote", pflag.ContinueOnError)
	named := flags.Bool("named", false, "vote publicly instead of anonymously")
	if err := flags.Parse(args); err != nil {
		return err
	}
	rest := flags.Args()
	if len(rest) < 2 {
		return fmt.Errorf("usage: padosi vote <id> <support|oppose>")
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid complaint id %q", rest[0])
	}

	if err := a.complaints.Vote(ctx, id, rest[1], !*named); err != nil {
		return fmt.Errorf("%s", a.complaints.Err())
	}
	fmt.Printf("voted %s on #%d\n", rest[1], id)
	return nil
}

func (a *app) cmdUnvote(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	if err := a.complaints.RemoveVote(ctx, id); err != nil {
		return fmt.Errorf("%s", a.complaints.Err())
	}
	fmt.Printf("removed vote on #%d\n", id)
	return nil
}

func (a *app) cmdComment(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("comment", pflag.ContinueOnError)
	anonymous := flags.Bool("anonymous", false, "comment anonymously")
	if err := flags.Parse(args); err != nil {
		return err
	}
	rest := flags.Args()
	if len(rest) < 2 {
		return fmt.Errorf("usage: padosi comment <id> <text>")
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid complaint id %q", rest[0])
	}

	comment, err := a.complaints.AddComment(ctx, id, strings.Join(rest[1:], " "), *anonymous)
	if err != nil {
		return fmt.Errorf("%s", a.complaints.Err())
	}
	fmt.Printf("added comment %d\n", comment.ID)
	return nil
}

func (a *app) cmdNotifications(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("notifications", pflag.ContinueOnError)
	unread := flags.Bool("unread", false, "only unread notifications")
	if err := flags.Parse(args); err != nil {
		return err
	}

	override := map[string]string{}
	if *unread {
		override["unread_only"] = "true"
	}
	if err := a.notifications.FetchList(ctx, override); err != nil {
		return fmt.Errorf("%s", a.notifications.Err())
	}

	for _, n := range a.notifications.Items() {
		marker := " "
		if !n.IsRead {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s — %s\n", marker, n.ID, n.Title, n.Message)
	}
	fmt.Printf("%d unread\n", a.notifications.UnreadCount())
	return nil
}

func (a *app) cmdRead(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("read", pflag.ContinueOnError)
	all := flags.Bool("all", false, "mark every notification read")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *all {
		if err := a.notifications.MarkAllAsRead(ctx); err != nil {
			return fmt.Errorf("%s", a.notifications.Err())
		}
		fmt.Println("all notifications marked read")
		return nil
	}

	id, err := argID(flags.Args())
	if err != nil {
		return err
	}
	if err := a.notifications.MarkAsRead(ctx, id); err != nil {
		return fmt.Errorf("%s", a.notifications.Err())
	}
	fmt.Printf("notification %d marked read\n", id)
	return nil
}

func argID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("an id argument is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}
