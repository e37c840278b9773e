package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/outreach/internal/api"
	"github.com/felixgeelhaar/outreach/internal/app"
	"github.com/felixgeelhaar/outreach/internal/domain"
	"github.com/felixgeelhaar/outreach/internal/form"
)

// openSession opens the app and applies the route guard
func openSession() (*app.App, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	if err := requireSession(a); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// cmdAdmins lists admin accounts
func cmdAdmins(ctx context.Context) error {
	a, err := openSession()
	if err != nil {
		return err
	}
	defer a.Close()

	admins, err := a.Client.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	fmt.Printf("Admins (%d):\n", len(admins))
	for _, u := range admins {
		fmt.Printf("  %-24s %-32s %s\n", u.Name, u.Email, u.Department)
	}
	return nil
}

// cmdVideos manages uploaded videos
func cmdVideos(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Println(`Video commands:

  outreach videos list [--page N] [--limit N] [--category C] [--search S]
  outreach videos show <id>
  outreach videos upload <file> --title T [--description D] [--category C]
  outreach videos update <id> [--title T] [--description D] [--category C]
  outreach videos delete <id>
  outreach videos url <id>`)
		return nil
	}

	a, err := openSession()
	if err != nil {
		return err
	}
	defer a.Close()

	videos := a.Client.Videos
	switch args[0] {
	case "list":
		return cmdVideosList(ctx, videos, args[1:])
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("video ID required")
		}
		v, err := videos.Get(ctx, args[1])
		if err != nil {
			return fmt.Errorf("get video: %w", err)
		}
		printVideo(v)
		return nil
	case "upload":
		return cmdVideosUpload(ctx, videos, args[1:])
	case "update":
		return cmdVideosUpdate(ctx, videos, args[1:])
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("video ID required")
		}
		if err := videos.Delete(ctx, args[1]); err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		fmt.Printf("✓ Deleted video %s\n", args[1])
		return nil
	case "url":
		if len(args) < 2 {
			return fmt.Errorf("video ID required")
		}
		fmt.Println(videos.StreamURL(args[1]))
		return nil
	default:
		return fmt.Errorf("unknown videos command: %s", args[0])
	}
}

func parseCategory(s string) (domain.VideoCategory, error) {
	c := domain.VideoCategory(strings.ToLower(s))
	if c != "" && !c.IsValid() {
		return "", fmt.Errorf("unknown category %q (valid: %s)", s, joinCategories())
	}
	return c, nil
}

func joinCategories() string {
	names := make([]string, len(domain.VideoCategories))
	for i, c := range domain.VideoCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func cmdVideosList(ctx context.Context, videos *api.VideoService, args []string) error {
	fs := flag.NewFlagSet("videos list", flag.ContinueOnError)
	page := fs.Int("page", domain.DefaultVideoPage, "page number")
	limit := fs.Int("limit", domain.DefaultVideoLimit, "videos per page")
	category := fs.String("category", "", "filter by category")
	search := fs.String("search", "", "search titles and descriptions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := parseCategory(*category)
	if err != nil {
		return err
	}

	result, err := videos.List(ctx, api.VideoQuery{Page: *page, Limit: *limit, Category: cat, Search: *search})
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}

	p := result.Pagination
	fmt.Printf("Videos (page %d of %d, %d total):\n", p.CurrentPage, p.TotalPages, p.TotalVideos)
	for _, v := range result.Videos {
		fmt.Printf("  %-26s %-14s %-10s %s\n", v.ID, v.Category, v.Status, v.Title)
	}
	return nil
}

func cmdVideosUpload(ctx context.Context, videos *api.VideoService, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("video file required")
	}
	path := args[0]

	fs := flag.NewFlagSet("videos upload", flag.ContinueOnError)
	title := fs.String("title", "", "video title")
	description := fs.String("description", "", "video description")
	category := fs.String("category", string(domain.VideoCategoryGeneral), "video category")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cat, err := parseCategory(*category)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	fmt.Printf("Uploading %s...\n", filepath.Base(path))
	v, err := videos.Upload(ctx, api.VideoUpload{
		Title:       *title,
		Description: *description,
		Category:    cat,
		Filename:    filepath.Base(path),
		Content:     file,
	})
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}

	fmt.Println("✓ Uploaded")
	printVideo(v)
	return nil
}

func cmdVideosUpdate(ctx context.Context, videos *api.VideoService, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("video ID required")
	}
	id := args[0]

	fs := flag.NewFlagSet("videos update", flag.ContinueOnError)
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	category := fs.String("category", "", "new category")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cat, err := parseCategory(*category)
	if err != nil {
		return err
	}

	v, err := videos.Update(ctx, id, domain.VideoUpdate{Title: *title, Description: *description, Category: cat})
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	fmt.Println("✓ Updated")
	printVideo(v)
	return nil
}

func printVideo(v *domain.Video) {
	fmt.Printf("ID:          %s\n", v.ID)
	fmt.Printf("Title:       %s\n", v.Title)
	if v.Description != "" {
		fmt.Printf("Description: %s\n", v.Description)
	}
	fmt.Printf("Category:    %s\n", v.Category)
	fmt.Printf("Status:      %s\n", v.Status)
	if v.Size > 0 {
		fmt.Printf("Size:        %.1f MB\n", float64(v.Size)/(1<<20))
	}
}

// cmdDonations reports recorded donations
func cmdDonations(ctx context.Context, args []string) error {
	a, err := openSession()
	if err != nil {
		return err
	}
	defer a.Close()

	payments := a.Client.Payments
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		fs := flag.NewFlagSet("donations", flag.ContinueOnError)
		page := fs.Int("page", 0, "page number")
		limit := fs.Int("limit", 0, "donations per page")
		status := fs.String("status", "", "filter by status")
		if err := fs.Parse(args); err != nil {
			return err
		}

		donations, err := payments.Donations(ctx, api.DonationQuery{Page: *page, Limit: *limit, Status: *status})
		if err != nil {
			return fmt.Errorf("list donations: %w", err)
		}
		fmt.Printf("Donations (%d):\n", len(donations))
		for _, d := range donations {
			fmt.Printf("  %-26s %10.2f %-4s %-10s %s\n", d.ID, d.Amount, strings.ToUpper(d.Currency), d.Status, d.Name)
		}
		return nil

	case "stats":
		stats, err := payments.Stats(ctx)
		if err != nil {
			return fmt.Errorf("donation stats: %w", err)
		}
		fmt.Println("Donation Statistics")
		fmt.Println("===================")
		fmt.Printf("Total Donations: %d\n", stats.TotalDonations)
		fmt.Printf("Total Amount:    %.2f\n", stats.TotalAmount)
		fmt.Printf("Average Amount:  %.2f\n", stats.AverageAmount)
		fmt.Printf("Succeeded:       %d\n", stats.SuccessfulCount)
		fmt.Printf("Pending:         %d\n", stats.PendingCount)
		fmt.Printf("Failed:          %d\n", stats.FailedCount)
		return nil

	case "show":
		if len(args) < 1 {
			return fmt.Errorf("donation ID required")
		}
		d, err := payments.Donation(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get donation: %w", err)
		}
		printDonation(d)
		return nil

	default:
		return fmt.Errorf("unknown donations command: %s (valid: list, stats, show)", sub)
	}
}

// cmdDonate opens a payment intent, or confirms one after the card step.
// Donating does not require a session.
func cmdDonate(ctx context.Context, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) > 0 && args[0] == "confirm" {
		if len(args) < 2 {
			return fmt.Errorf("payment intent ID required")
		}
		d, err := a.Client.Payments.Confirm(ctx, args[1])
		if err != nil {
			return fmt.Errorf("confirm donation: %w", err)
		}
		fmt.Println("✓ Donation confirmed")
		printDonation(d)
		return nil
	}

	fs := flag.NewFlagSet("donate", flag.ContinueOnError)
	var f form.Donation
	fs.Float64Var(&f.Amount, "amount", 0, "amount in dollars")
	fs.StringVar(&f.Name, "name", "", "donor name")
	fs.StringVar(&f.Email, "email", "", "donor email")
	donationType := fs.String("type", "", "donation type")
	currency := fs.String("currency", "", "currency code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f.Type = domain.DonationType(strings.ToLower(*donationType))
	f.Currency = domain.Currency(strings.ToLower(*currency))

	req, err := f.Domain()
	if err != nil {
		return err
	}

	intent, err := a.Client.Payments.CreateIntent(ctx, req)
	if err != nil {
		return fmt.Errorf("create payment intent: %w", err)
	}

	fmt.Printf("✓ Payment intent created for %.2f %s\n", req.Dollars(), strings.ToUpper(string(req.Currency)))
	fmt.Printf("Intent:        %s\n", intent.ID)
	fmt.Printf("Client secret: %s\n", intent.ClientSecret)
	fmt.Println("\nComplete the card step in the hosted checkout, then run:")
	fmt.Printf("  outreach donate confirm %s\n", intent.ID)
	return nil
}

func printDonation(d *domain.Donation) {
	fmt.Printf("ID:       %s\n", d.ID)
	fmt.Printf("Donor:    %s <%s>\n", d.Name, d.Email)
	fmt.Printf("Amount:   %.2f %s\n", d.Amount, strings.ToUpper(d.Currency))
	fmt.Printf("Status:   %s\n", d.Status)
	if d.CreatedAt != nil {
		fmt.Printf("Date:     %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}
