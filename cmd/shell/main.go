// Command shell drives the storefront from a terminal. State is kept in the
// same ledger file the server uses by default.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/logger"
	"github.com/rl1809/storefront/internal/port"
)

var (
	ledgerPath = flag.String("ledger", "data/ledger.json", "Ledger file path")
	catalogURL = flag.String("catalog", catalog.DefaultURL, "Catalog URL")
	timeout    = flag.Duration("timeout", 10*time.Second, "Catalog fetch timeout")
	verbose    = flag.Bool("v", false, "Log to stderr")
)

const help = `commands:
  products [term]     list or search products
  add <id>            add one unit to the cart
  inc <id> | dec <id> change a line quantity by one
  remove <id>         remove a line
  coupon <code>       apply a coupon, empty to clear
  funds               add funds
  cart                show the cart
  checkout            place the order
  reviews             show customer reviews
  contact             send a message
  quit`

type shell struct {
	in         *bufio.Scanner
	out        io.Writer
	storefront *service.Storefront
	products   *service.Catalog
	reviews    *service.ReviewCarousel
	contact    *service.ContactDesk
	presenter  handler.Presenter
}

func main() {
	flag.Parse()

	closeLog, err := logger.Init(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	log := zap.NewNop()
	if *verbose {
		log = logger.Log()
	}

	store, err := storage.NewFileStore(*ledgerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open ledger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	opts := service.DefaultOptions()
	opts.QueueSize = 0
	sh := &shell{
		in:        bufio.NewScanner(os.Stdin),
		out:       os.Stdout,
		products:  service.NewCatalog(log),
		reviews:   service.NewReviewCarousel(domain.DefaultReviews()),
		contact:   service.NewContactDesk(log),
		presenter: handler.NewPresenter(opts.DisplayFactor, domain.DefaultCurrency),
	}

	fmt.Fprintln(sh.out, "loading catalog...")
	if err := sh.products.Load(ctx, catalog.NewHTTPSource(*catalogURL, *timeout)); err != nil {
		fmt.Fprintf(sh.out, "catalog unavailable: %v\n", err)
	}

	sh.storefront, err = service.NewStorefront(ctx, service.Dependencies{
		Catalog:     sh.products,
		Store:       store,
		Idempotency: storage.NewMemoryStore(),
		Logger:      log,
	}, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init storefront: %v\n", err)
		os.Exit(1)
	}

	sh.printCart(sh.storefront.Snapshot())
	fmt.Fprintln(sh.out, help)
	sh.loop(ctx)
}

func (sh *shell) loop(ctx context.Context) {
	for {
		fmt.Fprint(sh.out, "> ")
		if !sh.in.Scan() {
			return
		}
		fields := strings.Fields(sh.in.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		if err := sh.run(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

func (sh *shell) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "products", "search":
		for _, p := range sh.presenter.Products(sh.products.Search(strings.Join(args, " "))) {
			fmt.Fprintf(sh.out, "%4d  %-53s %s\n", p.ID, p.Title, p.Price)
		}
		if sh.products.State() != service.CatalogReady {
			fmt.Fprintf(sh.out, "catalog %s\n", sh.products.State())
		}
		return nil
	case "add", "inc", "dec", "remove":
		id, err := productArg(args)
		if err != nil {
			return err
		}
		return sh.mutate(ctx, cmd, id)
	case "coupon":
		snap, err := sh.storefront.ApplyCoupon(ctx, strings.Join(args, " "))
		sh.printCart(snap)
		return ignoreWarned(err)
	case "funds":
		snap, err := sh.storefront.AddFunds(ctx)
		sh.printCart(snap)
		return err
	case "cart":
		sh.printCart(sh.storefront.Snapshot())
		return nil
	case "checkout":
		return sh.checkout(ctx)
	case "reviews":
		for i, r := range sh.reviews.Reviews() {
			v := sh.presenter.Review(r)
			fmt.Fprintf(sh.out, "%d. %s %s (%s)\n   %s\n", i+1, v.Name, v.Stars, v.Date, v.Comment)
		}
		return nil
	case "contact":
		return sh.sendContact(ctx)
	case "help":
		fmt.Fprintln(sh.out, help)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (sh *shell) mutate(ctx context.Context, cmd string, id int) error {
	var (
		snap domain.Snapshot
		err  error
	)
	switch cmd {
	case "add":
		snap, err = sh.storefront.AddItem(ctx, id)
	case "inc":
		snap, err = sh.storefront.ChangeQuantity(ctx, id, 1)
	case "dec":
		snap, err = sh.storefront.ChangeQuantity(ctx, id, -1)
	case "remove":
		snap, err = sh.storefront.RemoveItem(ctx, id)
	}
	sh.printCart(snap)
	return ignoreWarned(err)
}

func (sh *shell) checkout(ctx context.Context) error {
	res, err := sh.storefront.Checkout(ctx, service.CheckoutInput{
		Confirmer: port.ConfirmFunc(sh.confirm),
	})
	if errors.Is(err, domain.ErrCheckoutCancelled) {
		fmt.Fprintln(sh.out, "order not placed")
		return nil
	}
	sh.printCart(res.Snapshot)
	if err != nil {
		return ignoreWarned(err)
	}
	fmt.Fprintf(sh.out, "order %s placed, %s charged\n", res.Order.ID, sh.presenter.Money(res.Order.Total))
	return nil
}

func (sh *shell) confirm(_ context.Context, total decimal.Decimal) bool {
	answer := sh.prompt(fmt.Sprintf("Pay %s. Confirm order? [y/N] ", sh.presenter.Money(total)))
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}

func (sh *shell) sendContact(ctx context.Context) error {
	msg := domain.ContactMessage{
		Name:    sh.prompt("Name: "),
		Email:   sh.prompt("Email: "),
		Message: sh.prompt("Message: "),
	}
	reply, err := sh.contact.Submit(ctx, msg)
	fmt.Fprintln(sh.out, reply)
	return ignoreWarned(err)
}

func (sh *shell) prompt(label string) string {
	fmt.Fprint(sh.out, label)
	if !sh.in.Scan() {
		return ""
	}
	return strings.TrimSpace(sh.in.Text())
}

func (sh *shell) printCart(snap domain.Snapshot) {
	v := sh.presenter.Cart(snap)
	for _, l := range v.Lines {
		fmt.Fprintf(sh.out, "  %4d  %-53s x%-3d %s\n", l.ID, l.Title, l.Quantity, l.LineTotal)
	}
	fmt.Fprintf(sh.out, "  items %d  subtotal %s  discount %s  total %s  balance %s\n",
		v.TotalItems, v.Subtotal, v.Discount, v.Total, v.Balance)
	if v.Warning != "" {
		fmt.Fprintf(sh.out, "  ! %s\n", v.Warning)
	}
}

func productArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected a product id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", args[0])
	}
	return id, nil
}

// ignoreWarned drops errors the snapshot already shows as a warning.
func ignoreWarned(err error) error {
	if err != nil && domain.WarningFor(err) != "" {
		return nil
	}
	return err
}
