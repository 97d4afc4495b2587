package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/KoduruNani/Flipkart-2/apierr"
	"github.com/KoduruNani/Flipkart-2/internal/config"
	"github.com/KoduruNani/Flipkart-2/pkg/di"
	"github.com/KoduruNani/Flipkart-2/products"
)

const usage = `usage: storefront <command> [arguments]

commands:
  products [-limit N]   list products
  product ID            show one product
  categories            list categories
  category NAME         list products in a category
  search QUERY...       search titles, descriptions and categories
  overview              product counts per category
`

// catalog is the read side of products.Repository.
type catalog interface {
	List(ctx context.Context, limit int) ([]products.Product, error)
	GetByID(ctx context.Context, id int) (products.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ListByCategory(ctx context.Context, category string) ([]products.Product, error)
	Search(ctx context.Context, query string) ([]products.Product, error)
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	logger = logger.Level(cfg.Level())
	logger.Debug().EmbedObject(cfg).Msg("config loaded")

	container, err := di.NewContainer(cfg, di.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("startup error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, container.Products(), os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		logger.Error().Err(err).Int("status", apierr.StatusOf(err)).Msg("command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, repo catalog, args []string, w io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(w, usage)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		fs := flag.NewFlagSet("products", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		limit := fs.Int("limit", 0, "maximum number of products")
		if err := fs.Parse(rest); err != nil {
			return apierr.InvalidArgument("products: %v", err)
		}
		list, err := repo.List(ctx, *limit)
		if err != nil {
			return err
		}
		return printProducts(w, list)

	case "product":
		if len(rest) != 1 {
			return apierr.InvalidArgument("product: expected exactly one ID")
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return apierr.InvalidArgument("product: invalid ID %q", rest[0])
		}
		p, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return printProduct(w, p)

	case "categories":
		cats, err := repo.Categories(ctx)
		if err != nil {
			return err
		}
		for _, c := range cats {
			fmt.Fprintln(w, c)
		}
		return nil

	case "category":
		list, err := repo.ListByCategory(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		return printProducts(w, list)

	case "search":
		list, err := repo.Search(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		return printProducts(w, list)

	case "overview":
		return overview(ctx, repo, w)

	case "help", "-h", "--help":
		fmt.Fprint(w, usage)
		return nil

	default:
		fmt.Fprint(w, usage)
		return errors.Errorf("unknown command %q", cmd)
	}
}

// overview loads the catalog and the category list concurrently.
func overview(ctx context.Context, repo catalog, w io.Writer) error {
	var (
		all  []products.Product
		cats []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = repo.List(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = repo.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	counts := make(map[string]int, len(cats))
	for _, c := range cats {
		counts[c] = 0
	}
	for _, p := range all {
		counts[p.Category]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CATEGORY\tPRODUCTS\n")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
	}
	fmt.Fprintf(tw, "total\t%d\n", len(all))
	return tw.Flush()
}

func printProducts(w io.Writer, list []products.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTITLE\tPRICE\tCATEGORY\n")
	for _, p := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Title, p.Price.StringFixed(2), p.Category)
	}
	return tw.Flush()
}

func printProduct(w io.Writer, p products.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", p.ID)
	fmt.Fprintf(tw, "Title\t%s\n", p.Title)
	fmt.Fprintf(tw, "Price\t%s\n", p.Price.StringFixed(2))
	fmt.Fprintf(tw, "Category\t%s\n", p.Category)
	fmt.Fprintf(tw, "Description\t%s\n", p.Description)
	if p.Image != "" {
		fmt.Fprintf(tw, "Image\t%s\n", p.Image)
	}
	if p.Rating != nil {
		fmt.Fprintf(tw, "Rating\t%.1f (%d reviews)\n", p.Rating.Rate, p.Rating.Count)
	}
	return tw.Flush()
}
