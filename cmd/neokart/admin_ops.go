package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// parseWhen accepts a plain date (midnight UTC) or an RFC 3339 timestamp.
func parseWhen(flag, raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q: use YYYY-MM-DD or RFC 3339", flag, raw)
}

func newAdminCouponsCmd(a *app) *cobra.Command {
	coupons := &cobra.Command{
		Use:   "coupons",
		Short: "List coupons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.admin.Coupons(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, list, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tCODE\tDISCOUNT\tMIN\tWINDOW\tUSED\tACTIVE")
				for _, c := range list {
					discount := c.DiscountValue.String()
					if c.DiscountType == models.DiscountPercentage {
						discount += "%"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s..%s\t%d/%d\t%t\n",
						c.ID, c.Code, discount, c.MinPurchaseAmount.StringFixed(2),
						c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly),
						c.TimesUsed, c.UsageLimit, c.Status)
				}
			})
		},
	}

	var (
		c              models.Coupon
		value, minimum string
		start, end     string
		disabled       bool
	)
	create := &cobra.Command{
		Use:   "create <code>",
		Short: "Create a coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Code = args[0]
			c.Status = !disabled

			var err error
			if c.DiscountValue, err = decimal.NewFromString(value); err != nil {
				return fmt.Errorf("invalid --value %q", value)
			}
			c.MinPurchaseAmount = decimal.Zero
			if minimum != "" {
				if c.MinPurchaseAmount, err = decimal.NewFromString(minimum); err != nil {
					return fmt.Errorf("invalid --min %q", minimum)
				}
			}
			if c.StartDate, err = parseWhen("start", start); err != nil {
				return err
			}
			if c.EndDate, err = parseWhen("end", end); err != nil {
				return err
			}

			created, err := a.admin.CreateCoupon(cmd.Context(), c)
			if err != nil {
				return err
			}
			a.message(cmd, "Created coupon %s (id %d).", created.Code, created.ID)
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&c.DiscountType, "type", models.DiscountPercentage, "percentage or fixed")
	f.StringVar(&value, "value", "", "Discount value")
	f.StringVar(&minimum, "min", "", "Minimum purchase amount")
	f.StringVar(&start, "start", "", "First valid day")
	f.StringVar(&end, "end", "", "Last valid day")
	f.IntVar(&c.UsageLimit, "limit", 100, "Maximum number of uses")
	f.BoolVar(&disabled, "disabled", false, "Create the coupon switched off")
	_ = create.MarkFlagRequired("value")
	_ = create.MarkFlagRequired("start")
	_ = create.MarkFlagRequired("end")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.admin.DeleteCoupon(cmd.Context(), id); err != nil {
				return err
			}
			a.message(cmd, "Deleted coupon %d.", id)
			return nil
		},
	}

	coupons.AddCommand(create, remove)
	return coupons
}

// parseSaleProduct reads "<product-id>:<percentage|fixed>:<value>".
func parseSaleProduct(raw string) (models.FlashSaleProduct, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return models.FlashSaleProduct{}, fmt.Errorf("invalid --product %q: want id:type:value", raw)
	}
	id, err := parseID(parts[0])
	if err != nil {
		return models.FlashSaleProduct{}, err
	}
	value, err := decimal.NewFromString(parts[2])
	if err != nil {
		return models.FlashSaleProduct{}, fmt.Errorf("invalid discount %q", parts[2])
	}
	return models.FlashSaleProduct{ProductID: id, DiscountType: parts[1], DiscountValue: value}, nil
}

func newAdminFlashSalesCmd(a *app) *cobra.Command {
	var active bool
	sales := &cobra.Command{
		Use:   "flash-sales",
		Short: "List flash sales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				list []models.FlashSale
				err  error
			)
			if active {
				list, err = a.admin.ActiveFlashSales(cmd.Context())
			} else {
				list, err = a.admin.FlashSales(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.render(cmd, list, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tTITLE\tSTART\tEND\tPRODUCTS\tENABLED")
				for _, s := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%t\n", s.ID, s.Title,
						s.StartDatetime.Format(time.DateTime), s.EndDatetime.Format(time.DateTime),
						len(s.Products), s.Status)
				}
			})
		},
	}
	sales.Flags().BoolVar(&active, "active", false, "Only sales running now")

	var (
		sale       models.FlashSale
		start, end string
		items      []string
	)
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a flash sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sale.Title = args[0]
			sale.Status = true

			var err error
			if sale.StartDatetime, err = parseWhen("start", start); err != nil {
				return err
			}
			if sale.EndDatetime, err = parseWhen("end", end); err != nil {
				return err
			}
			sale.Products = sale.Products[:0]
			for _, raw := range items {
				p, err := parseSaleProduct(raw)
				if err != nil {
					return err
				}
				sale.Products = append(sale.Products, p)
			}

			created, err := a.admin.CreateFlashSale(cmd.Context(), sale)
			if err != nil {
				return err
			}
			a.message(cmd, "Created flash sale %d.", created.ID)
			return nil
		},
	}
	create.Flags().StringVar(&start, "start", "", "Start time")
	create.Flags().StringVar(&end, "end", "", "End time")
	create.Flags().StringArrayVar(&items, "product", nil, "Discounted product as id:type:value; repeatable")
	_ = create.MarkFlagRequired("start")
	_ = create.MarkFlagRequired("end")
	_ = create.MarkFlagRequired("product")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a flash sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.admin.DeleteFlashSale(cmd.Context(), id); err != nil {
				return err
			}
			a.message(cmd, "Deleted flash sale %d.", id)
			return nil
		},
	}

	sales.AddCommand(create, remove)
	return sales
}

func printUsers(w io.Writer, users []models.User) {
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tVERIFIED\tENABLED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%t\n", u.ID, u.Name, u.Email, u.Phone, u.Verified, u.Enabled)
	}
}

func newAdminUsersCmd(a *app) *cobra.Command {
	var page, size int
	users := &cobra.Command{
		Use:   "users",
		Short: "List customer accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("page") {
				list, err := a.admin.Users(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(cmd, list, func(w io.Writer) { printUsers(w, list) })
			}

			p, err := a.admin.UsersPage(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return a.render(cmd, p, func(w io.Writer) {
				printUsers(w, p.Items)
				fmt.Fprintf(w, "\nPage %d of %d (%d users)\n", p.Page, p.TotalPages, p.Total)
			})
		},
	}
	users.Flags().IntVar(&page, "page", 1, "Page number; lists everyone when omitted")
	users.Flags().IntVar(&size, "size", 20, "Page size")

	users.AddCommand(
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				u, err := a.admin.User(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.render(cmd, u, func(w io.Writer) { printUser(w, *u) })
			},
		},
		&cobra.Command{
			Use:   "search <email>",
			Short: "Find accounts by email",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.admin.SearchUsers(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.render(cmd, list, func(w io.Writer) { printUsers(w, list) })
			},
		},
		&cobra.Command{
			Use:   "toggle <id>",
			Short: "Enable or disable an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				u, err := a.admin.ToggleUserStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				state := "disabled"
				if u.Enabled {
					state = "enabled"
				}
				a.message(cmd, "Account %s is now %s.", u.Email, state)
				return nil
			},
		},
	)
	return users
}

func newAdminOrdersCmd(a *app) *cobra.Command {
	var (
		cursor string
		limit  int
	)
	orders := &cobra.Command{
		Use:   "orders",
		Short: "List all orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cursor") && !cmd.Flags().Changed("limit") {
				list, err := a.admin.AllOrders(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(cmd, list, func(w io.Writer) { printOrders(w, list) })
			}

			p, err := a.admin.OrdersPage(cmd.Context(), cursor, limit)
			if err != nil {
				return err
			}
			return a.render(cmd, p, func(w io.Writer) {
				printOrders(w, p.Items)
				if p.HasMore {
					fmt.Fprintf(w, "\nMore: --cursor %s\n", p.NextCursor)
				}
			})
		},
	}
	orders.Flags().StringVar(&cursor, "cursor", "", "Continue after this cursor")
	orders.Flags().IntVar(&limit, "limit", 20, "Orders per page")

	orders.AddCommand(
		&cobra.Command{
			Use:   "status <id> <status>",
			Short: "Move an order to PROCESSING, SHIPPED, DELIVERED or CANCELLED",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				status := strings.ToUpper(args[1])
				if !models.ValidOrderStatus(status) {
					return fmt.Errorf("unknown order status %q", args[1])
				}
				o, err := a.admin.UpdateOrderStatus(cmd.Context(), id, status)
				if err != nil {
					return err
				}
				a.message(cmd, "Order %d is %s.", o.ID, o.Status)
				return nil
			},
		},
		&cobra.Command{
			Use:   "ship-next",
			Short: "Ship the oldest processing order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				o, err := a.admin.ShipNextOrder(cmd.Context())
				if err != nil {
					return err
				}
				a.message(cmd, "Shipped order %d.", o.ID)
				return nil
			},
		},
	)
	return orders
}

func newAdminAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Show recent admin actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.admin.AuditLogs(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, logs, func(w io.Writer) {
				fmt.Fprintln(w, "WHEN\tWHO\tACTION")
				for _, l := range logs {
					fmt.Fprintf(w, "%s\t%s\t%s\n", l.Timestamp.Format(time.DateTime), l.PerformedBy, l.Action)
				}
			})
		},
	}
}

func newAdminMessagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "Read contact form messages, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := a.admin.ContactMessages(cmd.Context())
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				a.message(cmd, "No messages.")
				return nil
			}
			return a.render(cmd, msgs, func(w io.Writer) {
				fmt.Fprintln(w, "WHEN\tFROM\tSUBJECT\tMESSAGE")
				for _, m := range msgs {
					fmt.Fprintf(w, "%s\t%s <%s>\t%s\t%s\n",
						m.CreatedAt.Format(time.DateTime), m.Name, m.Email, m.Subject, strings.ReplaceAll(m.Message, "\n", " "))
				}
			})
		},
	}
}

func newAdminDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show sales and stock figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.admin.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, d, func(w io.Writer) { printDashboard(w, d) })
		},
	}
}

func printDashboard(w io.Writer, d *models.Dashboard) {
	fmt.Fprintf(w, "Products\t%d\n", d.TotalProducts)

	fmt.Fprintln(w, "\nORDERS")
	statuses := make([]string, 0, len(d.OrdersByStatus))
	for s := range d.OrdersByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%d\n", s, d.OrdersByStatus[s])
	}

	fmt.Fprintln(w, "\nLAST 7 DAYS")
	for _, p := range d.WeeklyIncome {
		fmt.Fprintf(w, "%s\t%s\n", p.Date, p.Sales.StringFixed(2))
	}

	fmt.Fprintln(w, "\nBY MONTH")
	months := make([]string, 0, len(d.MonthlyIncome))
	for m := range d.MonthlyIncome {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		fmt.Fprintf(w, "%s\t%s\n", m, d.MonthlyIncome[m].StringFixed(2))
	}

	fmt.Fprintln(w, "\nTOP SELLERS")
	for i, p := range d.TopProducts {
		fmt.Fprintf(w, "%d.\t%s\t%d\n", i+1, p.ProductName, p.TotalQuantity)
	}

	if len(d.LowStock) > 0 {
		fmt.Fprintln(w, "\nLOW STOCK")
		for _, p := range d.LowStock {
			fmt.Fprintf(w, "%d\t%s\t%d\n", p.ID, p.Name, p.Stock)
		}
	}
}
