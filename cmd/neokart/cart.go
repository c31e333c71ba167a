package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/safar/neokart/internal/models"
	"github.com/spf13/cobra"
)

func newCartCmd(a *app) *cobra.Command {
	cart := &cobra.Command{
		Use:   "cart",
		Short: "Show the shopping cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cart.Fetch(cmd.Context()); err != nil {
				return err
			}
			return a.showCart(cmd)
		},
	}

	cart.AddCommand(
		&cobra.Command{
			Use:   "add <product-id> [quantity]",
			Short: "Add a product to the cart",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, qty, err := cartArgs(args, 1)
				if err != nil {
					return err
				}
				if err := a.cart.Add(cmd.Context(), id, qty); err != nil {
					return err
				}
				return a.showCart(cmd)
			},
		},
		&cobra.Command{
			Use:   "update <product-id> <quantity>",
			Short: "Set the quantity of a cart line",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, qty, err := cartArgs(args, 0)
				if err != nil {
					return err
				}
				if err := a.cart.Update(cmd.Context(), id, qty); err != nil {
					return err
				}
				return a.showCart(cmd)
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := a.cart.Remove(cmd.Context(), id); err != nil {
					return err
				}
				return a.showCart(cmd)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.cart.Clear(cmd.Context()); err != nil {
					return err
				}
				return a.showCart(cmd)
			},
		},
	)
	return cart
}

func cartArgs(args []string, defaultQty int) (int64, int, error) {
	id, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	qty := defaultQty
	if len(args) > 1 {
		qty, err = strconv.Atoi(args[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid quantity %q", args[1])
		}
	}
	if qty < 1 {
		return 0, 0, fmt.Errorf("quantity must be at least 1")
	}
	return id, qty, nil
}

func (a *app) showCart(cmd *cobra.Command) error {
	c := a.cart.Snapshot()
	if len(c.Items) == 0 && !a.asJSON {
		a.message(cmd, "Your cart is empty.")
		return nil
	}
	return a.render(cmd, c, func(w io.Writer) { printCart(w, c) })
}

func printCart(w io.Writer, c models.Cart) {
	fmt.Fprintln(w, "PRODUCT\tNAME\tQTY\tPRICE")
	for _, item := range c.Items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", item.Product.ID, item.Product.Name, item.Quantity, item.Price.StringFixed(2))
	}
	fmt.Fprintf(w, "\nTotal\t\t%d items\t%s\n", c.ItemCount(), c.TotalPrice.StringFixed(2))
}
