package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/internal/board"
	"github.com/stitchboard/stitchboard/pkg/models"
)

// boardctl is a terminal view of the order board. It logs in, pulls
// the board state and renders either the Kanban columns or a flat
// filtered listing.
func main() {
	var (
		baseURL  = flag.String("url", envOr("STITCHBOARD_URL", "http://localhost:8080"), "API base URL")
		email    = flag.String("email", envOr("STITCHBOARD_EMAIL", ""), "login email")
		password = flag.String("password", envOr("STITCHBOARD_PASSWORD", ""), "login password")
		token    = flag.String("token", envOr("STITCHBOARD_TOKEN", ""), "bearer token (skips login)")
		view     = flag.String("view", "board", "view: board or list")
		search   = flag.String("search", "", "search text (order id, customer name or phone)")
		status   = flag.String("status", board.FilterAll, "status slug filter")
		tag      = flag.String("tag", board.FilterAll, "tag filter")
		dateType = flag.String("date-type", board.DateAll, "date filter: all, today, week, month or custom")
		date     = flag.String("date", "", "delivery date for -date-type=custom (YYYY-MM-DD)")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	if !*verbose {
		logger.SetLevel(logrus.WarnLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := board.NewClient(*baseURL, logger)
	switch {
	case *token != "":
		client.SetToken(*token)
	case *email != "" && *password != "":
		if err := client.Login(ctx, *email, *password); err != nil {
			fatalf("login failed: %v", err)
		}
	default:
		fatalf("provide -token or both -email and -password")
	}

	session := board.NewSession(client, logger)
	if err := session.Refresh(ctx); err != nil {
		fatalf("refresh failed: %v", err)
	}

	session.SetCriteria(board.Criteria{
		Search:   *search,
		Status:   *status,
		Tag:      *tag,
		DateType: *dateType,
		Date:     *date,
	})

	orders := session.FilteredOrders()
	catalog := session.Catalog()

	switch *view {
	case "board":
		renderBoard(os.Stdout, catalog, orders)
	case "list":
		renderList(os.Stdout, catalog, orders)
	default:
		fatalf("unknown view %q", *view)
	}
}

func renderBoard(out *os.File, catalog *board.Catalog, orders []models.Order) {
	byStatus := make(map[string][]models.Order)
	for _, o := range orders {
		byStatus[o.Status] = append(byStatus[o.Status], o)
	}

	for _, col := range catalog.Columns() {
		cards := byStatus[col.Value]
		fmt.Fprintf(out, "%s (%d)\n", col.Title, len(cards))
		for _, o := range cards {
			line := fmt.Sprintf("  %s  %s", o.OrderID, o.CustomerName)
			if o.DeliveryDate != "" {
				line += "  due " + o.DeliveryDate
			}
			if len(o.Tags) > 0 {
				line += "  [" + strings.Join(o.Tags, ", ") + "]"
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
	}
}

func renderList(out *os.File, catalog *board.Catalog, orders []models.Order) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tCUSTOMER\tPHONE\tSTATUS\tDUE\tPAYMENT\tTAGS")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.OrderID,
			o.CustomerName,
			o.CustomerPhone,
			catalog.Title(o.Status),
			o.DeliveryDate,
			o.PaymentStatus,
			strings.Join(o.Tags, ","),
		)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d orders\n", len(orders))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
