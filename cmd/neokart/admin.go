package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/safar/neokart/internal/apiclient"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAdminCmd(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Back-office commands (requires an admin session)",
	}

	admin.AddCommand(
		&cobra.Command{
			Use:   "login <email> <password>",
			Short: "Sign in to the back office",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.adminAuth.Login(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				a.message(cmd, "Admin session started.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "End the admin session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.adminAuth.Active() {
					if err := a.admin.Logout(cmd.Context()); err != nil {
						a.logger.Debug("server logout failed", zap.Error(err))
					}
				}
				a.adminAuth.Logout()
				a.message(cmd, "Admin session ended.")
				return nil
			},
		},
		newAdminRegisterCmd(a),
		newAdminProfileCmd(a),
		newAdminProductsCmd(a),
		newAdminVariantsCmd(a),
		newAdminCouponsCmd(a),
		newAdminFlashSalesCmd(a),
		newAdminUsersCmd(a),
		newAdminOrdersCmd(a),
		newAdminAuditCmd(a),
		newAdminMessagesCmd(a),
		newAdminDashboardCmd(a),
	)
	return admin
}

func newAdminRegisterCmd(a *app) *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.admin.AdminRegister(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.message(cmd, "%s", resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAdminProfileCmd(a *app) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.admin.AdminProfile(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, u, func(w io.Writer) { printUser(w, *u) })
		},
	}

	var req models.UpdateProfileRequest
	update := &cobra.Command{
		Use:   "update",
		Short: "Change the admin's name, email or phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.admin.UpdateAdminProfile(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.render(cmd, u, func(w io.Writer) { printUser(w, *u) })
		},
	}
	update.Flags().StringVar(&req.Name, "name", "", "New name")
	update.Flags().StringVar(&req.Email, "email", "", "New email")
	update.Flags().StringVar(&req.Phone, "phone", "", "New phone")

	password := &cobra.Command{
		Use:   "password <current> <new>",
		Short: "Change the admin password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.admin.ChangeAdminPassword(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.message(cmd, "%s", resp.Message)
			return nil
		},
	}

	profile.AddCommand(update, password)
	return profile
}

type productFlags struct {
	name, description, price, sku, category, sub string
	stock                                        int
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Product name")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.price, "price", "", "Unit price")
	cmd.Flags().IntVar(&f.stock, "stock", 0, "Units in stock")
	cmd.Flags().StringVar(&f.sku, "sku", "", "Stock keeping unit; generated from the name when empty")
	cmd.Flags().StringVar(&f.category, "category", "", "Category")
	cmd.Flags().StringVar(&f.sub, "sub", "", "Sub-category")
}

// overlay copies the flags the user actually set onto in.
func (f *productFlags) overlay(cmd *cobra.Command, in *models.ProductInput) error {
	set := cmd.Flags().Changed
	if set("name") {
		in.Name = f.name
	}
	if set("description") {
		in.Description = f.description
	}
	if set("price") {
		price, err := decimal.NewFromString(f.price)
		if err != nil {
			return fmt.Errorf("invalid --price %q", f.price)
		}
		in.Price = price
	}
	if set("stock") {
		in.Stock = f.stock
	}
	if set("sku") {
		in.SKU = f.sku
	}
	if set("category") {
		in.Category = f.category
	}
	if set("sub") {
		in.SubCategory = f.sub
	}
	return nil
}

func newAdminProductsCmd(a *app) *cobra.Command {
	var page, size int
	products := &cobra.Command{
		Use:   "products",
		Short: "List products page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.admin.ProductsPage(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return a.render(cmd, p, func(w io.Writer) {
				printProducts(w, p.Items)
				fmt.Fprintf(w, "\nPage %d of %d (%d products)\n", p.Page, p.TotalPages, p.Total)
			})
		},
	}
	products.Flags().IntVar(&page, "page", 1, "Page number")
	products.Flags().IntVar(&size, "size", 20, "Page size")

	var addFlags productFlags
	var images []string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a product with optional images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in models.ProductInput
			if err := addFlags.overlay(cmd, &in); err != nil {
				return err
			}

			files := make([]apiclient.File, 0, len(images))
			for _, path := range images {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open image: %w", err)
				}
				defer f.Close()
				files = append(files, apiclient.File{Name: filepath.Base(path), Content: f})
			}

			p, err := a.admin.AddProduct(cmd.Context(), in, files)
			if err != nil {
				return err
			}
			a.message(cmd, "Created product %d (%s).", p.ID, p.SKU)
			return nil
		},
	}
	addFlags.register(add)
	add.Flags().StringSliceVar(&images, "image", nil, "Image file; the first one is the primary image")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("price")
	_ = add.MarkFlagRequired("category")

	var updateFlags productFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.admin.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}

			in := models.ProductInput{
				Name:        current.Name,
				Description: current.Description,
				Price:       current.Price,
				Stock:       current.Stock,
				SKU:         current.SKU,
				Category:    current.Category,
				SubCategory: current.SubCategory,
			}
			if err := updateFlags.overlay(cmd, &in); err != nil {
				return err
			}

			p, err := a.admin.UpdateProduct(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			a.message(cmd, "Updated product %d.", p.ID)
			return nil
		},
	}
	updateFlags.register(update)

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.admin.DeleteProduct(cmd.Context(), id); err != nil {
				return err
			}
			a.message(cmd, "Deleted product %d.", id)
			return nil
		},
	}

	bulk := &cobra.Command{
		Use:   "bulk <file.csv>",
		Short: "Create products from a CSV file",
		Long:  "The CSV header names the columns: name, description, price, stock, sku, category, subCategory. Name, price and category are required.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			result, err := a.admin.BulkUpload(cmd.Context(), apiclient.File{Name: filepath.Base(args[0]), Content: f})
			if err != nil {
				return err
			}
			return a.render(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "Created\t%d\n", result.Created)
				for _, e := range result.Errors {
					fmt.Fprintf(w, "Skipped\t%s\n", e)
				}
			})
		},
	}

	products.AddCommand(add, update, remove, bulk)
	return products
}

func newAdminVariantsCmd(a *app) *cobra.Command {
	variants := &cobra.Command{
		Use:   "variants <product-id>",
		Short: "List the variants of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := a.admin.Variants(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(cmd, list, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tCOLOR\tSIZE\tSTORAGE\tPRICE\tSTOCK\tSKU")
				for _, v := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
						v.ID, v.VariantName, v.Color, v.Size, v.Storage, v.Price.StringFixed(2), v.Stock, v.SKU)
				}
			})
		},
	}

	var v models.ProductVariant
	var price string
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a variant to a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if v.Price, err = decimal.NewFromString(price); err != nil {
				return fmt.Errorf("invalid --price %q", price)
			}
			created, err := a.admin.AddVariant(cmd.Context(), id, v)
			if err != nil {
				return err
			}
			a.message(cmd, "Created variant %d.", created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&v.VariantName, "name", "", "Variant name")
	add.Flags().StringVar(&v.Color, "color", "", "Color")
	add.Flags().StringVar(&v.Size, "size", "", "Size")
	add.Flags().StringVar(&v.Storage, "storage", "", "Storage capacity")
	add.Flags().StringVar(&price, "price", "", "Unit price")
	add.Flags().IntVar(&v.Stock, "stock", 0, "Units in stock")
	add.Flags().StringVar(&v.SKU, "sku", "", "Variant SKU")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("price")
	_ = add.MarkFlagRequired("sku")

	remove := &cobra.Command{
		Use:   "delete <variant-id>",
		Short: "Delete a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.admin.DeleteVariant(cmd.Context(), id); err != nil {
				return err
			}
			a.message(cmd, "Deleted variant %d.", id)
			return nil
		},
	}

	variants.AddCommand(add, remove)
	return variants
}
