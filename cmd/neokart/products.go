package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/safar/neokart/internal/catalog"
	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/storefront"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type listFlags struct {
	maxPrice string
	ratings  []int
	sub      string
	sort     string
	page     int
}

// applyTo pushes the flags into v in the order a shopper would click them;
// the page goes last since every other change returns to page 1.
func (f listFlags) applyTo(v *catalog.View) error {
	if f.maxPrice != "" {
		ceiling, err := decimal.NewFromString(f.maxPrice)
		if err != nil {
			return fmt.Errorf("invalid --max-price %q", f.maxPrice)
		}
		v.SetPriceCeiling(ceiling)
	}
	if len(f.ratings) > 0 {
		for _, r := range f.ratings {
			if r < 1 || r > 4 {
				return fmt.Errorf("invalid --rating %d: choose from 1 to 4", r)
			}
		}
		v.SetRatings(f.ratings)
	}
	if f.sub != "" {
		v.SetSubCategory(f.sub)
	}
	key, err := catalog.ParseSortKey(f.sort)
	if err != nil {
		return err
	}
	v.SetSort(key)
	v.SetPage(f.page)
	return nil
}

func newProductsCmd(a *app) *cobra.Command {
	var flags listFlags

	products := &cobra.Command{
		Use:   "products [category]",
		Short: "Browse products, optionally within one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				fetched []models.Product
				err     error
			)
			if len(args) == 1 {
				fetched, err = a.user.ProductsByCategory(cmd.Context(), args[0])
			} else {
				fetched, err = a.user.ListProducts(cmd.Context())
			}
			if err != nil {
				return err
			}

			view := catalog.NewView(a.cfg.PageSize)
			view.Load(fetched)
			if err := flags.applyTo(view); err != nil {
				return err
			}
			return a.renderView(cmd, view)
		},
	}
	products.Flags().StringVar(&flags.maxPrice, "max-price", "", "Hide products above this price")
	products.Flags().IntSliceVar(&flags.ratings, "rating", nil, "Minimum star rating; repeat to match any of several")
	products.Flags().StringVar(&flags.sub, "sub", "", "Only this sub-category")
	products.Flags().StringVar(&flags.sort, "sort", "relevance", "relevance, lowToHigh, highToLow, newest, nameAZ or nameZA")
	products.Flags().IntVar(&flags.page, "page", 1, "Page number")

	products.AddCommand(
		newProductShowCmd(a),
		newProductBrowseCmd(a),
		newProductRateCmd(a),
	)
	return products
}

func (a *app) renderView(cmd *cobra.Command, view *catalog.View) error {
	visible := view.Visible()
	if view.Empty() {
		a.message(cmd, "No products match your filters.")
		return nil
	}
	return a.render(cmd, visible, func(w io.Writer) {
		printProducts(w, visible)
		fmt.Fprintf(w, "\nPage %d of %d (%d products)\n", view.Page(), view.PageCount(), view.ResultCount())
		if subs := view.SubCategories(); len(subs) > 0 {
			fmt.Fprintf(w, "Sub-categories: %s\n", strings.Join(subs, ", "))
		}
	})
}

func newProductShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product with its ratings and related products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.user.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			ratings, err := a.user.ProductRatings(cmd.Context(), id)
			if err != nil {
				return err
			}
			related, err := a.user.RelatedProducts(cmd.Context(), p.Category, id)
			if err != nil {
				return err
			}

			detail := struct {
				Product *models.Product        `json:"product"`
				Ratings []models.ProductRating `json:"ratings"`
				Related []models.Product       `json:"related"`
			}{p, ratings, related}

			return a.render(cmd, detail, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Price.StringFixed(2))
				fmt.Fprintf(w, "SKU\t%s\n", p.SKU)
				fmt.Fprintf(w, "Category\t%s\n", categoryPath(*p))
				fmt.Fprintf(w, "Stock\t%d\n", p.Stock)
				fmt.Fprintf(w, "Rating\t%.1f\n", p.Rating())
				if img := p.PrimaryImage(); img != "" {
					fmt.Fprintf(w, "Image\t%s\n", img)
				}
				if p.Description != "" {
					fmt.Fprintf(w, "\n%s\n", p.Description)
				}
				if len(ratings) > 0 {
					fmt.Fprintln(w, "\nREVIEWS")
					for _, r := range ratings {
						fmt.Fprintf(w, "%s\t%s\t%s\n", r.Username, strings.Repeat("*", r.Stars), r.Comment)
					}
				}
				if len(related) > 0 {
					fmt.Fprintln(w, "\nYOU MAY ALSO LIKE")
					printProducts(w, related)
				}
			})
		},
	}
}

// newProductBrowseCmd lists a sub-category through the server-side price
// and sort filters, the way the category page fetches after each change.
func newProductBrowseCmd(a *app) *cobra.Command {
	var minPrice, maxPrice, sortBy string

	cmd := &cobra.Command{
		Use:   "browse <category> <sub-category>",
		Short: "List a sub-category with server-side price and sort filters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := optionalPrice("min-price", minPrice)
			if err != nil {
				return err
			}
			hi, err := optionalPrice("max-price", maxPrice)
			if err != nil {
				return err
			}

			listing := storefront.NewListing(a.user, a.cfg.PriceDebounce, a.logger)
			defer listing.Close()

			listing.Open(args[0], args[1])
			if sortBy != "" {
				listing.SetSort(sortBy)
			}
			if lo != nil || hi != nil {
				listing.SetPriceRange(lo, hi)
			}
			listing.Wait()

			res := listing.Latest()
			if res.Err != nil {
				return res.Err
			}
			if len(res.Products) == 0 {
				a.message(cmd, "No products match your filters.")
				return nil
			}
			return a.render(cmd, res.Products, func(w io.Writer) { printProducts(w, res.Products) })
		},
	}
	cmd.Flags().StringVar(&minPrice, "min-price", "", "Lowest price")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "Highest price")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "price_asc, price_desc, rating_desc or newest")
	return cmd
}

func optionalPrice(flag, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q", flag, raw)
	}
	return &d, nil
}

func newProductRateCmd(a *app) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "rate <id> <stars>",
		Short: "Rate a product from 1 to 5 stars",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var stars int
			if _, err := fmt.Sscan(args[1], &stars); err != nil || stars < 1 || stars > 5 {
				return fmt.Errorf("stars must be between 1 and 5")
			}
			resp, err := a.user.RateProduct(cmd.Context(), id, models.RatingRequest{Stars: stars, Comment: comment})
			if err != nil {
				return err
			}
			a.message(cmd, "%s", resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "Review text")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	var tree bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tree {
				nodes, err := a.user.CategoryTree(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(cmd, nodes, func(w io.Writer) {
					for _, n := range nodes {
						fmt.Fprintf(w, "%s\t%s\n", n.Category, strings.Join(n.SubCategories, ", "))
					}
				})
			}

			names, err := a.user.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, names, func(w io.Writer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "Include sub-categories")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search products by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions := storefront.NewSuggestions(a.user, a.cfg.SearchDebounce, a.logger)
			defer suggestions.Close()

			suggestions.Type(strings.Join(args, " "))
			suggestions.Wait()

			res := suggestions.Latest()
			if res.Err != nil {
				return res.Err
			}
			if len(res.Products) == 0 {
				a.message(cmd, "No products found for %q.", suggestions.Query())
				return nil
			}
			return a.render(cmd, res.Products, func(w io.Writer) { printProducts(w, res.Products) })
		},
	}
}

func categoryPath(p models.Product) string {
	if p.SubCategory == "" {
		return p.Category
	}
	return p.Category + " / " + p.SubCategory
}

func printProducts(w io.Writer, products []models.Product) {
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tRATING\tSTOCK\tCATEGORY")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%d\t%s\n",
			p.ID, p.Name, p.Price.StringFixed(2), p.Rating(), p.Stock, categoryPath(p))
	}
}
