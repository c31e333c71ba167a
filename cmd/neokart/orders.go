package main

import (
	"fmt"
	"io"

	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOrdersCmd(a *app) *cobra.Command {
	orders := &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.user.MyOrders(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, list, func(w io.Writer) { printOrders(w, list) })
		},
	}

	orders.AddCommand(
		newCheckoutCmd(a),
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				o, err := a.user.GetOrder(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.render(cmd, o, func(w io.Writer) { printOrder(w, *o) })
			},
		},
		&cobra.Command{
			Use:   "cancel <id>",
			Short: "Cancel an order that has not been delivered",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				resp, err := a.user.CancelOrder(cmd.Context(), id)
				if err != nil {
					return err
				}
				a.message(cmd, "%s", resp.Message)
				return nil
			},
		},
	)
	return orders
}

// newCheckoutCmd places an order for everything currently in the cart.
func newCheckoutCmd(a *app) *cobra.Command {
	var req models.OrderRequest
	addr := &req.ShippingAddress

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cart.Fetch(cmd.Context()); err != nil {
				return err
			}
			c := a.cart.Snapshot()
			if len(c.Items) == 0 {
				return fmt.Errorf("your cart is empty")
			}

			req.Items = req.Items[:0]
			for _, item := range c.Items {
				req.Items = append(req.Items, models.OrderLine{ProductID: item.Product.ID, Quantity: item.Quantity})
			}

			o, err := a.user.CreateOrder(cmd.Context(), req)
			if err != nil {
				return err
			}
			// The server empties the cart as part of placing the order.
			if err := a.cart.Fetch(cmd.Context()); err != nil {
				a.logger.Debug("refresh cart after checkout", zap.Error(err))
			}
			return a.render(cmd, o, func(w io.Writer) { printOrder(w, *o) })
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr.Name, "name", "", "Recipient name")
	f.StringVar(&addr.Email, "email", "", "Contact email")
	f.StringVar(&addr.Phone, "phone", "", "Contact phone")
	f.StringVar(&addr.Address, "address", "", "Street address")
	f.StringVar(&addr.City, "city", "", "City")
	f.StringVar(&addr.State, "state", "", "State or region")
	f.StringVar(&addr.Zip, "zip", "", "Postal code")
	f.StringVar(&addr.Country, "country", "", "Country")
	f.StringVar(&req.PaymentMethod, "payment", "COD", "Payment method")
	f.StringVar(&req.CouponCode, "coupon", "", "Coupon code")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}

func newCouponCmd(a *app) *cobra.Command {
	var total string
	cmd := &cobra.Command{
		Use:   "coupon <code>",
		Short: "Apply a coupon to a total",
		Long:  "Applies a coupon and prints the discounted amount. Without --total the current cart total is used.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount decimal.Decimal
			if total != "" {
				d, err := decimal.NewFromString(total)
				if err != nil {
					return fmt.Errorf("invalid --total %q", total)
				}
				amount = d
			} else {
				if err := a.cart.Fetch(cmd.Context()); err != nil {
					return err
				}
				amount = a.cart.Snapshot().TotalPrice
			}

			quote, err := a.user.ApplyCoupon(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			return a.render(cmd, quote, func(w io.Writer) {
				fmt.Fprintf(w, "Original\t%s\n", quote.OriginalAmount.StringFixed(2))
				fmt.Fprintf(w, "Discounted\t%s\n", quote.DiscountedAmount.StringFixed(2))
			})
		},
	}
	cmd.Flags().StringVar(&total, "total", "", "Amount to quote against")
	return cmd
}

func printOrders(w io.Writer, orders []models.Order) {
	fmt.Fprintln(w, "ID\tDATE\tSTATUS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", o.ID, o.OrderDate.Format("2006-01-02"), o.Status, o.TotalPrice.StringFixed(2))
	}
}

func printOrder(w io.Writer, o models.Order) {
	fmt.Fprintf(w, "Order\t#%d\n", o.ID)
	fmt.Fprintf(w, "Placed\t%s\n", o.OrderDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Status\t%s\n", o.Status)
	s := o.ShippingAddress
	fmt.Fprintf(w, "Ship to\t%s, %s, %s %s %s\n", s.Name, s.Address, s.City, s.State, s.Zip)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PRODUCT\tQTY\tPRICE")
	for _, item := range o.Items {
		fmt.Fprintf(w, "%s\t%d\t%s\n", item.Product.Name, item.Quantity, item.Price.StringFixed(2))
	}
	fmt.Fprintf(w, "Total\t\t%s\n", o.TotalPrice.StringFixed(2))
}
