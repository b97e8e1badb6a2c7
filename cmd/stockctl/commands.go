package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"gopkg.in/alecthomas/kingpin.v2"

	"stockroom/internal/backup"
	"stockroom/internal/codec"
	"stockroom/pkg/domain"
)

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(codec.DateLayout, raw)
	if err != nil {
		return time.Time{}, domain.NewError("parse", "", raw, domain.ErrInvalidInput, "dates are written YYYY-MM-DD")
	}
	return t, nil
}

func itemsCommand(app *kingpin.Application) map[string]handler {
	items := app.Command("items", "Catalogue items.")

	list := items.Command("list", "List items.")
	search := list.Flag("search", "only items whose code or name contains this text").String()

	add := items.Command("add", "Add an item.")
	name := add.Flag("name", "item name").Required().String()
	supplier := add.Flag("supplier", "supplier id").Required().String()
	qty := add.Flag("qty", "catalogue quantity").Default("0").Int()
	price := add.Flag("price", "price per unit").Default("0").String()

	return map[string]handler{
		list.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			rows, err := reg.Items().Search(ctx, *search)
			if err != nil {
				return err
			}
			return table(s.out, "CODE\tNAME\tSUPPLIER\tQTY\tPRICE", func(tw *tabwriter.Writer) {
				for _, it := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", it.ItemCode, it.ItemName,
						reg.Resolver().ResolveSupplierName(ctx, it.SupplierID), it.StockQuantity, codec.FormatMoney(it.PricePerUnit))
				}
			})
		},
		add.FullCommand(): func(ctx context.Context, s *session) error {
			p, err := decimal.NewFromString(*price)
			if err != nil {
				return domain.NewError("add", domain.KindItem, "", domain.ErrInvalidInput, "price is not a number")
			}
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			code, err := reg.Items().Add(ctx, domain.Item{ItemName: *name, SupplierID: *supplier, StockQuantity: *qty, PricePerUnit: p})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, code)
			return nil
		},
	}
}

func stockCommand(app *kingpin.Application) map[string]handler {
	stock := app.Command("stock", "Stock levels.")

	list := stock.Command("list", "List stock levels.")
	low := list.Flag("low", "only stock below the low-stock threshold").Bool()

	add := stock.Command("add", "Start tracking stock for an item.")
	addCode := add.Arg("item", "item code").Required().String()
	addQty := add.Flag("qty", "opening quantity").Default("0").Int()
	location := add.Flag("location", "storage location").String()

	set := stock.Command("set", "Overwrite a stock quantity.")
	setCode := set.Arg("item", "item code").Required().String()
	setQty := set.Arg("qty", "new quantity").Required().Int()

	adjust := stock.Command("adjust", "Apply a signed correction.")
	adjCode := adjust.Arg("item", "item code").Required().String()
	delta := adjust.Flag("delta", "signed quantity change, e.g. --delta=-3").Required().Int()
	reason := adjust.Flag("reason", "why the count changed").Required().String()

	receive := stock.Command("receive", "Add a completed purchase order to stock.")
	orderID := receive.Arg("order", "purchase order id").Required().String()

	show := func(s *session, st domain.Stock) {
		fmt.Fprintf(s.out, "%s %s qty=%d status=%s\n", st.ItemCode, st.ItemName, st.Quantity, st.Status)
	}

	return map[string]handler{
		list.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			var rows []domain.Stock
			if *low {
				rows, err = reg.Stock().LowStock(ctx)
			} else {
				rows, err = reg.Stock().List(ctx)
			}
			if err != nil {
				return err
			}
			return table(s.out, "CODE\tNAME\tQTY\tSTATUS\tLOCATION\tUPDATED", func(tw *tabwriter.Writer) {
				for _, st := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", st.ItemCode, st.ItemName, st.Quantity, st.Status, st.Location,
						humanize.Time(st.LastUpdated))
				}
			})
		},
		add.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			it, err := reg.Items().Get(ctx, *addCode)
			if err != nil {
				return err
			}
			if _, err := reg.Stock().Add(ctx, domain.Stock{ItemCode: it.ItemCode, ItemName: it.ItemName, Quantity: *addQty, Location: *location}); err != nil {
				return err
			}
			st, err := reg.Stock().Get(ctx, it.ItemCode)
			if err != nil {
				return err
			}
			show(s, st)
			return nil
		},
		set.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			st, err := reg.StockService().SetQuantity(ctx, *setCode, *setQty)
			if err != nil {
				return err
			}
			show(s, st)
			return nil
		},
		adjust.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			st, err := reg.StockService().Adjust(ctx, *adjCode, *delta, *reason)
			if err != nil {
				return err
			}
			show(s, st)
			return nil
		},
		receive.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			st, err := reg.StockService().ConfirmReceipt(ctx, *orderID)
			if err != nil {
				return err
			}
			show(s, st)
			return nil
		},
	}
}

func ordersCommand(app *kingpin.Application) map[string]handler {
	orders := app.Command("orders", "Purchase orders.")

	list := orders.Command("list", "List purchase orders.")
	status := list.Flag("status", "only orders in this status").Enum(string(domain.OrderPending), string(domain.OrderCompleted), string(domain.OrderCancelled))

	add := orders.Command("add", "Place a purchase order for an item.")
	item := add.Flag("item", "item code").Required().String()
	qty := add.Flag("qty", "quantity ordered").Required().Int()
	date := add.Flag("date", "order date, YYYY-MM-DD (default today)").String()

	complete := orders.Command("complete", "Mark a pending order completed.")
	completeID := complete.Arg("order", "purchase order id").Required().String()
	cancel := orders.Command("cancel", "Cancel a pending order.")
	cancelID := cancel.Arg("order", "purchase order id").Required().String()

	show := func(s *session, o domain.PurchaseOrder) {
		fmt.Fprintf(s.out, "%s %s qty=%d status=%s\n", o.OrderID, o.ItemCode, o.Quantity, o.Status)
	}

	return map[string]handler{
		list.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			var rows []domain.PurchaseOrder
			if *status != "" {
				rows, err = reg.Orders().ByStatus(ctx, domain.OrderStatus(*status))
			} else {
				rows, err = reg.Orders().List(ctx)
			}
			if err != nil {
				return err
			}
			return table(s.out, "ORDER\tITEM\tNAME\tSUPPLIER\tQTY\tDATE\tSTATUS", func(tw *tabwriter.Writer) {
				for _, o := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", o.OrderID, o.ItemCode, o.ItemName,
						reg.Resolver().ResolveSupplierName(ctx, o.SupplierID), o.Quantity, codec.FormatDate(o.OrderDate), o.Status)
				}
			})
		},
		add.FullCommand(): func(ctx context.Context, s *session) error {
			when, err := parseDate(*date)
			if err != nil {
				return err
			}
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			it, err := reg.Items().Get(ctx, *item)
			if err != nil {
				return err
			}
			id, err := reg.Orders().Add(ctx, domain.PurchaseOrder{ItemCode: it.ItemCode, ItemName: it.ItemName, SupplierID: it.SupplierID, Quantity: *qty, OrderDate: when})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, id)
			return nil
		},
		complete.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			o, err := reg.Orders().Complete(ctx, *completeID)
			if err != nil {
				return err
			}
			show(s, o)
			return nil
		},
		cancel.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			o, err := reg.Orders().Cancel(ctx, *cancelID)
			if err != nil {
				return err
			}
			show(s, o)
			return nil
		},
	}
}

func requisitionsCommand(app *kingpin.Application) map[string]handler {
	reqs := app.Command("requisitions", "Purchase requisitions raised by sales.")

	list := reqs.Command("list", "List requisitions with resolved names.")

	add := reqs.Command("add", "Raise a requisition.")
	item := add.Flag("item", "item code").Required().String()
	qty := add.Flag("qty", "quantity requested").Required().Int()
	required := add.Flag("required", "date needed, YYYY-MM-DD").Required().String()
	manager := add.Flag("sales-manager", "requesting user id").Required().String()

	approve := reqs.Command("approve", "Approve a pending requisition.")
	approveID := approve.Arg("requisition", "requisition id").Required().String()
	reject := reqs.Command("reject", "Reject a pending requisition.")
	rejectID := reject.Arg("requisition", "requisition id").Required().String()
	reason := reject.Flag("reason", "why the request was declined").Required().String()

	show := func(s *session, p domain.PurchaseRequisition) {
		fmt.Fprintf(s.out, "%s %s qty=%d status=%s\n", p.RequisitionID, p.ItemCode, p.Quantity, p.Status)
	}

	return map[string]handler{
		list.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			rows, err := reg.Resolver().RequisitionRows(ctx)
			if err != nil {
				return err
			}
			return table(s.out, "REQUISITION\tITEM\tNAME\tQTY\tREQUIRED\tSALES MANAGER\tSUPPLIER\tSTATUS", func(tw *tabwriter.Writer) {
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n", r.RequisitionID, r.ItemCode, r.ResolvedItemName, r.Quantity,
						codec.FormatDate(r.RequiredDate), r.SalesManagerName, r.SupplierName, r.Status)
				}
			})
		},
		add.FullCommand(): func(ctx context.Context, s *session) error {
			when, err := parseDate(*required)
			if err != nil {
				return err
			}
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			id, err := reg.Requisitions().Add(ctx, domain.PurchaseRequisition{
				ItemCode:       *item,
				ItemName:       reg.Resolver().ResolveItemName(ctx, *item),
				Quantity:       *qty,
				RequiredDate:   when,
				SalesManagerID: *manager,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, id)
			return nil
		},
		approve.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			p, err := reg.Requisitions().Approve(ctx, *approveID)
			if err != nil {
				return err
			}
			show(s, p)
			return nil
		},
		reject.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			p, err := reg.Requisitions().Reject(ctx, *rejectID, *reason)
			if err != nil {
				return err
			}
			show(s, p)
			return nil
		},
	}
}

func salesCommand(app *kingpin.Application) map[string]handler {
	sales := app.Command("sales", "Sales entries.")

	list := sales.Command("list", "List sales entries.")
	from := list.Flag("from", "first day, YYYY-MM-DD").String()
	to := list.Flag("to", "last day, YYYY-MM-DD").String()

	record := sales.Command("record", "Record a sale.")
	item := record.Arg("item", "item code").Required().String()
	qty := record.Arg("qty", "quantity sold").Required().Int()
	manager := record.Flag("sales-manager", "selling user id").Required().String()
	date := record.Flag("date", "sale date, YYYY-MM-DD (default today)").String()

	return map[string]handler{
		list.FullCommand(): func(ctx context.Context, s *session) error {
			lo, err := parseDate(*from)
			if err != nil {
				return err
			}
			hi, err := parseDate(*to)
			if err != nil {
				return err
			}
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			var rows []domain.SalesEntry
			if lo.IsZero() && hi.IsZero() {
				rows, err = reg.Sales().List(ctx)
			} else {
				if hi.IsZero() {
					hi = time.Now()
				}
				rows, err = reg.Sales().Between(ctx, lo, hi)
			}
			if err != nil {
				return err
			}
			return table(s.out, "ENTRY\tDATE\tITEM\tNAME\tQTY\tTOTAL\tCATEGORY", func(tw *tabwriter.Writer) {
				for _, e := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", e.EntryID, codec.FormatDate(e.Date), e.ItemID, e.ItemName,
						e.Quantity, codec.FormatMoney(e.TotalPrice), e.Category)
				}
			})
		},
		record.FullCommand(): func(ctx context.Context, s *session) error {
			when, err := parseDate(*date)
			if err != nil {
				return err
			}
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			e, err := reg.Sales().RecordSale(ctx, when, *item, *qty, *manager)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s total=%s\n", e.EntryID, codec.FormatMoney(e.TotalPrice))
			return nil
		},
	}
}

func logsCommand(app *kingpin.Application) map[string]handler {
	logs := app.Command("logs", "Audit log.")

	list := logs.Command("list", "List audit entries.")
	user := list.Flag("user", "only entries by this user id").String()
	inventory := list.Flag("inventory", "only stock movements").Bool()

	history := logs.Command("history", "Show the stock movements of one item.")
	item := history.Arg("item", "item code").Required().String()

	return map[string]handler{
		list.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			var rows []domain.SystemLog
			switch {
			case *user != "":
				rows, err = reg.Logs().ByUser(ctx, *user)
			case *inventory:
				rows, err = reg.Logs().InventoryLogs(ctx)
			default:
				rows, err = reg.Logs().List(ctx)
			}
			if err != nil {
				return err
			}
			return table(s.out, "LOG\tTIME\tUSER\tACTION\tDETAILS", func(tw *tabwriter.Writer) {
				for _, l := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.LogID, codec.FormatTimestamp(l.Timestamp), l.Username, l.Action, l.Details)
				}
			})
		},
		history.FullCommand(): func(ctx context.Context, s *session) error {
			ctx, reg, err := s.registry(ctx)
			if err != nil {
				return err
			}
			moves, err := reg.Logs().StockHistory(ctx, *item)
			if err != nil {
				return err
			}
			return table(s.out, "LOG\tTIME\tKIND\tQTY\tUSER\tREASON", func(tw *tabwriter.Writer) {
				for _, m := range moves {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", m.LogID, codec.FormatTimestamp(m.Timestamp), m.Kind, m.Quantity, m.Username, m.Reason)
				}
			})
		},
	}
}

func backupCommand(app *kingpin.Application) map[string]handler {
	bk := app.Command("backup", "Table snapshots in blob storage.")
	create := bk.Command("create", "Export every table to a new snapshot.")
	list := bk.Command("list", "List snapshots.")
	restore := bk.Command("restore", "Replace every table with a snapshot.")
	id := restore.Arg("snapshot", "snapshot id").Required().String()

	exporter := func(ctx context.Context, s *session) (*backup.Exporter, error) {
		tables, err := s.tables(ctx)
		if err != nil {
			return nil, err
		}
		blobs, err := s.blobs(ctx)
		if err != nil {
			return nil, err
		}
		return backup.New(tables, blobs, backup.WithLogger(s.logger)), nil
	}

	return map[string]handler{
		create.FullCommand(): func(ctx context.Context, s *session) error {
			e, err := exporter(ctx, s)
			if err != nil {
				return err
			}
			snap, err := e.Export(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s (%s)\n", snap.ID, humanize.Bytes(uint64(snap.Size)))
			return nil
		},
		list.FullCommand(): func(ctx context.Context, s *session) error {
			e, err := exporter(ctx, s)
			if err != nil {
				return err
			}
			snaps, err := e.List(ctx)
			if err != nil {
				return err
			}
			return table(s.out, "SNAPSHOT\tCREATED\tTABLES\tSIZE", func(tw *tabwriter.Writer) {
				for _, sn := range snaps {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sn.ID, sn.CreatedAt.Format(time.RFC3339), len(sn.Kinds), humanize.Bytes(uint64(sn.Size)))
				}
			})
		},
		restore.FullCommand(): func(ctx context.Context, s *session) error {
			e, err := exporter(ctx, s)
			if err != nil {
				return err
			}
			if err := e.Restore(ctx, *id); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "restored %s\n", *id)
			return nil
		},
	}
}
