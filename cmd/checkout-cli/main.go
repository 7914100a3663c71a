package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazeru/storefront-checkout-go/internal/cart"
	"github.com/nazeru/storefront-checkout-go/internal/checkout"
	"github.com/nazeru/storefront-checkout-go/internal/config"
	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/internal/session"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/internal/storefront"
	"github.com/nazeru/storefront-checkout-go/pkg/magento"
	"github.com/nazeru/storefront-checkout-go/pkg/outbox"
)

type operation struct {
	Name  string
	Thunk func(sf *storefront.Storefront, payload checkout.InputPayload) state.Thunk
}

var operations = []operation{
	{"reset", func(sf *storefront.Storefront, _ checkout.InputPayload) state.Thunk { return sf.Checkout.Reset() }},
	{"edit shipping", func(sf *storefront.Storefront, _ checkout.InputPayload) state.Thunk {
		return sf.Checkout.EditSection(domain.SectionInput)
	}},
	{"submit cart", func(sf *storefront.Storefront, _ checkout.InputPayload) state.Thunk { return sf.Checkout.SubmitCart() }},
	{"submit shipping", func(sf *storefront.Storefront, p checkout.InputPayload) state.Thunk { return sf.Checkout.SubmitInput(p) }},
	{"place order", func(sf *storefront.Storefront, _ checkout.InputPayload) state.Thunk { return sf.Checkout.SubmitOrder() }},
	{"new cart", func(sf *storefront.Storefront, _ checkout.InputPayload) state.Thunk {
		return func(ctx context.Context, d state.Dispatcher) error {
			if err := d.Run(ctx, sf.Cart.ResetGuestCart()); err != nil {
				return err
			}
			return d.Run(ctx, sf.Cart.CreateGuestCart())
		}
	}},
}

type model struct {
	sf       *storefront.Storefront
	payload  checkout.InputPayload
	selected int
	status   string
	busy     bool
}

type operationResult struct {
	name string
	err  error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.selected < len(operations)-1 {
				m.selected++
			}
		case "enter":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Running..."
			return m, runOperationCmd(m.sf, operations[m.selected], m.payload)
		}
	case operationResult:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.name, msg.err)
		} else {
			m.status = msg.name + " done"
		}
	}
	return m, nil
}

func (m model) View() string {
	st := m.sf.State()
	b := &strings.Builder{}
	fmt.Fprintln(b, "storefront checkout")
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Cart:    %s\n", orDash(st.Cart.GuestCartID.String()))
	fmt.Fprintf(b, "Step:    %s\n", st.Checkout.Step)
	fmt.Fprintf(b, "Editing: %s\n", orDash(string(st.Checkout.Editing)))
	if len(st.Checkout.Order) > 0 {
		fmt.Fprintf(b, "Order:   %s\n", strings.TrimSpace(string(st.Checkout.Order)))
	}
	if st.Checkout.Err != nil {
		fmt.Fprintf(b, "Error:   %v\n", st.Checkout.Err)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Operations:")
	for i, op := range operations {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %s\n", marker, op.Name)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: up/down select, enter to run, q to quit")
	return b.String()
}

func runOperationCmd(sf *storefront.Storefront, op operation, payload checkout.InputPayload) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := sf.Run(ctx, op.Thunk(sf, payload))
		return operationResult{name: op.Name, err: err}
	}
}

// runScripted performs a full guest checkout and reports where it stopped.
func runScripted(ctx context.Context, sf *storefront.Storefront, payload checkout.InputPayload) error {
	steps := []state.Thunk{
		sf.Checkout.SubmitCart(),
		sf.Checkout.EditSection(domain.SectionInput),
		sf.Checkout.SubmitInput(payload),
		sf.Checkout.SubmitOrder(),
	}
	for _, step := range steps {
		if err := sf.Run(ctx, step); err != nil {
			return err
		}
		if err := sf.State().Checkout.Err; err != nil {
			return err
		}
	}
	return nil
}

func main() {
	run := flag.String("run", "", "run non-interactively: checkout")
	street := flag.String("street", "1 Main St", "shipping street")
	city := flag.String("city", "Los Angeles", "shipping city")
	region := flag.String("region", "CA", "shipping region code")
	postcode := flag.String("postcode", "90001", "shipping postcode")
	firstname := flag.String("firstname", "Guest", "shopper first name")
	lastname := flag.String("lastname", "Shopper", "shopper last name")
	email := flag.String("email", "guest@example.com", "shopper email")
	phone := flag.String("phone", "555-0100", "shopper phone")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := storefront.Options{SessionID: cfg.SessionID, JournalTopic: cfg.KafkaTopic, LogActions: *run != ""}
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		defer pool.Close()
		if err := session.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("db schema error: %v", err)
		}
		if err := outbox.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("db schema error: %v", err)
		}
		if opts.SessionID == "" {
			opts.SessionID = session.NewID()
		}
		opts.IDStore = session.New(pool, opts.SessionID)
		opts.Journal = outbox.NewStore(pool)
	} else {
		opts.IDStore = cart.NewMemoryIDStore()
	}

	client := magento.New(cfg.MagentoBaseURL, magento.WithTimeout(cfg.RequestTimeout))
	sf := storefront.New(client, opts)
	defer sf.Close()

	if err := sf.Start(ctx); err != nil {
		log.Fatalf("start checkout: %v", err)
	}

	payload := checkout.InputPayload{FormValues: domain.Address{
		"firstname":   *firstname,
		"lastname":    *lastname,
		"email":       *email,
		"telephone":   *phone,
		"street":      []string{*street},
		"city":        *city,
		"postcode":    *postcode,
		"region_code": *region,
	}}

	if *run != "" {
		if *run != "checkout" {
			fmt.Fprintf(os.Stderr, "unknown run mode %q\n", *run)
			os.Exit(2)
		}
		if err := runScripted(context.Background(), sf, payload); err != nil {
			fmt.Println("checkout failed:", err)
			sf.Close()
			os.Exit(1)
		}
		fmt.Printf("order placed: %s\n", strings.TrimSpace(string(sf.State().Checkout.Order)))
		return
	}

	p := tea.NewProgram(model{sf: sf, payload: payload, status: "Ready"})
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
