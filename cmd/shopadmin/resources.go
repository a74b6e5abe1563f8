package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/resource"
)

// collection describes one synchronized resource for the CLI.
type collection[T any, In any] struct {
	name     string
	singular string
	read     gate.Tier
	write    gate.Tier
	sync     func(*cli) *resource.Synchronizer[T, In]
}

// readInput decodes a JSON body from --data, or from the file named by
// --file ("-" is stdin).
func readInput[In any](cmd *cobra.Command, data, file string) (In, error) {
	var in In
	var r io.Reader
	switch {
	case data != "":
		r = strings.NewReader(data)
	case file == "-":
		r = cmd.InOrStdin()
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return in, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	default:
		return in, fmt.Errorf("a JSON body is required (--data or --file)")
	}
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return in, fmt.Errorf("invalid JSON body: %w", err)
	}
	return in, nil
}

func inputFlags(cmd *cobra.Command, data, file *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "JSON body")
	cmd.Flags().StringVarP(file, "file", "f", "", "File holding the JSON body (- for stdin)")
}

func (col collection[T, In]) listCmd(c *cli) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + col.name,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(col.read); err != nil {
				return err
			}
			result, err := col.sync(c).List(cmd.Context(), page, limit)
			if err != nil {
				return failure(err, "Failed to fetch "+col.name)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&page, "page", model.DefaultPage, "Page number")
	cmd.Flags().IntVar(&limit, "limit", model.DefaultLimit, "Page size")
	return cmd
}

func (col collection[T, In]) getCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one " + col.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(col.read); err != nil {
				return err
			}
			item, err := col.sync(c).Get(cmd.Context(), args[0])
			if err != nil {
				return failure(err, "Failed to fetch "+col.singular)
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
}

func (col collection[T, In]) createCmd(c *cli) *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a " + col.singular,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(col.write); err != nil {
				return err
			}
			in, err := readInput[In](cmd, data, file)
			if err != nil {
				return err
			}
			item, err := col.sync(c).Create(cmd.Context(), in)
			if err != nil && item == nil {
				return failure(err, "Failed to create "+col.singular)
			}
			if err != nil {
				c.app.logger.Warn("created but the list could not be refreshed", "error", err)
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	inputFlags(cmd, &data, &file)
	return cmd
}

func (col collection[T, In]) updateCmd(c *cli) *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a " + col.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(col.write); err != nil {
				return err
			}
			in, err := readInput[In](cmd, data, file)
			if err != nil {
				return err
			}
			item, err := col.sync(c).Update(cmd.Context(), args[0], in)
			if err != nil {
				return failure(err, "Failed to update "+col.singular)
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	inputFlags(cmd, &data, &file)
	return cmd
}

func (col collection[T, In]) deleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a " + col.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(col.write); err != nil {
				return err
			}
			if err := col.sync(c).Delete(cmd.Context(), args[0]); err != nil {
				return failure(err, "Failed to delete "+col.singular)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", col.singular, args[0])
			return nil
		},
	}
}

func (col collection[T, In]) command(c *cli, extra ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{Use: col.name, Short: "Manage " + col.name}
	cmd.AddCommand(col.listCmd(c), col.getCmd(c), col.createCmd(c), col.updateCmd(c), col.deleteCmd(c))
	cmd.AddCommand(extra...)
	return cmd
}

func productsCmd(c *cli) *cobra.Command {
	return collection[model.Product, model.ProductInput]{
		name: "products", singular: "product",
		read: gate.TierAuthenticated, write: gate.TierAdmin,
		sync: func(c *cli) *resource.Products { return c.app.products },
	}.command(c)
}

func categoriesCmd(c *cli) *cobra.Command {
	return collection[model.Category, model.CategoryInput]{
		name: "categories", singular: "category",
		read: gate.TierAdmin, write: gate.TierAdmin,
		sync: func(c *cli) *resource.Categories { return c.app.categories },
	}.command(c)
}

func settingsCmd(c *cli) *cobra.Command {
	col := collection[model.Setting, model.SettingInput]{
		name: "settings", singular: "setting",
		read: gate.TierAdmin, write: gate.TierAdmin,
		sync: func(c *cli) *resource.Synchronizer[model.Setting, model.SettingInput] {
			return c.app.settings.Synchronizer
		},
	}
	public := &cobra.Command{
		Use:   "public",
		Short: "Show the settings visible without signing in",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := c.app.settings.Public(cmd.Context())
			if err != nil {
				return failure(err, "Failed to load settings")
			}
			return printJSON(cmd.OutOrStdout(), values)
		},
	}
	return col.command(c, public)
}

// Orders cannot be edited or deleted; they only move through their
// lifecycle.
func ordersCmd(c *cli) *cobra.Command {
	col := collection[model.Order, model.OrderInput]{
		name: "orders", singular: "order",
		read: gate.TierAuthenticated, write: gate.TierAuthenticated,
		sync: func(c *cli) *resource.Synchronizer[model.Order, model.OrderInput] {
			return c.app.orders.Synchronizer
		},
	}

	status := &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move an order to a new status",
		Long: "Move an order to a new status. Orders move forward through " +
			"pending, processing, shipped and delivered, and may be cancelled " +
			"until they are delivered.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireTier(gate.TierAdmin); err != nil {
				return err
			}
			order, err := c.app.orders.Get(cmd.Context(), args[0])
			if err != nil {
				return failure(err, "Failed to fetch order")
			}
			updated, err := c.app.orders.SetStatus(cmd.Context(), *order, model.OrderStatus(args[1]))
			if err != nil {
				return failure(err, "Failed to update order status")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s\n", updated.OrderNumber, updated.Status)
			return nil
		},
	}

	cmd := &cobra.Command{Use: col.name, Short: "Manage orders"}
	cmd.AddCommand(col.listCmd(c), col.getCmd(c), col.createCmd(c), status)
	return cmd
}

// Accounts are created by registering, so there is no create command.
func usersCmd(c *cli) *cobra.Command {
	col := collection[model.User, model.UserPatch]{
		name: "users", singular: "user",
		read: gate.TierAdmin, write: gate.TierAdmin,
		sync: func(c *cli) *resource.Users { return c.app.users },
	}
	cmd := &cobra.Command{Use: col.name, Short: "Manage accounts"}
	cmd.AddCommand(col.listCmd(c), col.getCmd(c), col.updateCmd(c), col.deleteCmd(c))
	return cmd
}
