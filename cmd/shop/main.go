package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/config"
	"github.com/b3nzuk3/gameCity-sub000/internal/pricing"
	"github.com/b3nzuk3/gameCity-sub000/internal/storefront"
	"github.com/shopspring/decimal"
)

const usage = `usage: shop [-api URL] [-state FILE] <command> [args]

commands:
  products [-q text] [-category c] [-sort s] [-page n]
  product <id>
  add <id> [qty]        set <id> <qty>        remove <id>
  cart                  clear
  register -name n -email e -password p
  login -email e -password p
  logout                resume
  checkout [-name n -email e -phone p] [-method m]
  pay -phone p [-amount a] [-order id]
  whatsapp -number n
  orders                order <id>
  fav <id>              favs
`

func main() {
	cfg := config.Load()
	defaultState := "gamecity-shop.json"
	if dir, err := os.UserConfigDir(); err == nil {
		defaultState = filepath.Join(dir, "gamecity", "shop.json")
	}

	var (
		apiURL    string
		statePath string
		verbose   bool
	)
	flag.StringVar(&apiURL, "api", cfg.PublicURL, "API base URL")
	flag.StringVar(&statePath, "state", defaultState, "Local state file")
	flag.BoolVar(&verbose, "v", false, "Log HTTP client activity")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "[shop] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	var clientLogger *log.Logger
	if verbose {
		clientLogger = logger
	}
	shop, err := storefront.New(storefront.Options{
		BaseURL:   apiURL,
		StatePath: statePath,
		Policy:    pricing.ShippingPolicy{FreeThreshold: cfg.FreeShippingThreshold, FlatRate: cfg.ShippingFlatRate},
		Notifier:  storefront.LogNotifier{Logger: log.New(os.Stderr, "", 0)},
		Logger:    clientLogger,
	})
	if err != nil {
		logger.Fatalf("open storefront: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := run(ctx, shop, flag.Arg(0), flag.Args()[1:]); err != nil {
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, shop *storefront.Storefront, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "products":
		q := fs.String("q", "", "search text")
		category := fs.String("category", "", "category")
		sort := fs.String("sort", "", "newest, price_asc, price_desc, rating or name")
		page := fs.Int("page", 1, "page number")
		_ = fs.Parse(args)
		query := url.Values{}
		for k, v := range map[string]string{"q": *q, "category": *category, "sort": *sort} {
			if v != "" {
				query.Set(k, v)
			}
		}
		query.Set("page", strconv.Itoa(*page))
		res, err := shop.Client().Products(ctx, query)
		if err != nil {
			return report(err)
		}
		for _, p := range res.Products {
			offer := ""
			if p.OnOffer {
				offer = " (was " + p.Price.StringFixed(2) + ")"
			}
			fmt.Printf("%s  %-40s KES %s%s\n", p.ID, p.Name, p.EffectivePrice.StringFixed(2), offer)
		}
		fmt.Printf("page %d of %d, %d products\n", res.Page, res.Pages, res.Total)
		return nil

	case "product":
		if len(args) != 1 {
			return usageError()
		}
		p, err := shop.Client().Product(ctx, args[0])
		if err != nil {
			return report(err)
		}
		return printJSON(p)

	case "add":
		if len(args) < 1 || len(args) > 2 {
			return usageError()
		}
		qty := 1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return usageError()
			}
			qty = n
		}
		return shop.AddToCart(ctx, args[0], qty)

	case "set":
		if len(args) != 2 {
			return usageError()
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return usageError()
		}
		return shop.SetQuantity(ctx, args[0], qty)

	case "remove":
		if len(args) != 1 {
			return usageError()
		}
		return shop.RemoveFromCart(ctx, args[0])

	case "clear":
		return shop.ClearCart(ctx)

	case "cart":
		view, err := shop.ViewCart(ctx)
		if err != nil {
			return err
		}
		for _, it := range view.Items {
			fmt.Printf("%-40s x%-3d KES %s\n", it.Name, it.Quantity, it.LineTotal().StringFixed(2))
		}
		fmt.Printf("items %d  subtotal KES %s  shipping KES %s  total KES %s\n",
			view.Count, view.Subtotal.StringFixed(2), view.Shipping.StringFixed(2), view.Total.StringFixed(2))
		return nil

	case "register":
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		msg, err := shop.Client().Register(ctx, *name, *email, *password)
		if err != nil {
			return report(err)
		}
		fmt.Println(msg)
		return nil

	case "login":
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		u, err := shop.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s\n", u.Name)
		return nil

	case "logout":
		return shop.Logout()

	case "resume":
		n, err := shop.Resume(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("moved %d items\n", n)
		return nil

	case "checkout":
		name := fs.String("name", "", "guest name")
		email := fs.String("email", "", "guest email")
		phone := fs.String("phone", "", "guest phone")
		method := fs.String("method", "M-Pesa", "payment method")
		_ = fs.Parse(args)
		order, err := shop.Checkout(ctx, storefront.GuestContact{Name: *name, Email: *email, Phone: *phone}, *method)
		if err != nil {
			return err
		}
		return printJSON(order)

	case "pay":
		phone := fs.String("phone", "", "phone to prompt")
		amount := fs.String("amount", "0", "amount in KES; 0 uses the order total")
		orderID := fs.String("order", "", "order id")
		_ = fs.Parse(args)
		amt, err := decimal.NewFromString(*amount)
		if err != nil {
			return usageError()
		}
		if res := shop.Pay(ctx, *phone, amt, *orderID); !res.Success {
			return fmt.Errorf("payment failed: %s", res.Error)
		}
		return nil

	case "whatsapp":
		number := fs.String("number", "", "store WhatsApp number")
		_ = fs.Parse(args)
		link, err := shop.WhatsApp(ctx, *number)
		if err != nil {
			return err
		}
		fmt.Println(link)
		return nil

	case "orders":
		orders, err := shop.Client().MyOrders(ctx)
		if err != nil {
			return report(err)
		}
		for _, o := range orders {
			fmt.Printf("%s  %-10s paid=%-5t KES %s  %s\n", o.ID, o.Status, o.IsPaid, o.TotalPrice.StringFixed(2), o.CreatedAt.Format(time.DateOnly))
		}
		return nil

	case "order":
		if len(args) != 1 {
			return usageError()
		}
		o, err := shop.Client().Order(ctx, args[0])
		if err != nil {
			return report(err)
		}
		return printJSON(o)

	case "fav":
		if len(args) != 1 {
			return usageError()
		}
		added, err := shop.Favorites().Toggle(args[0])
		if err != nil {
			return report(err)
		}
		if added {
			fmt.Println("added to favorites")
		} else {
			fmt.Println("removed from favorites")
		}
		return nil

	case "favs":
		for _, id := range shop.Favorites().List() {
			fmt.Println(id)
		}
		return nil
	}
	return usageError()
}

func usageError() error {
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("bad usage")
}

func report(err error) error {
	fmt.Fprintln(os.Stderr, "error:", err)
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
