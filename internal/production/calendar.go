package production

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"furniture-erp/internal/models"
)

// DefaultBaseCode is used when a SKU carries no digit run
const DefaultBaseCode = "100"

var (
	baseCodePattern = regexp.MustCompile(`\d{2,3}`)
	sizePattern     = regexp.MustCompile(`^\d+`)
)

// Day is one cell of the month grid
type Day struct {
	Date      string          `json:"date"`
	InMonth   bool            `json:"in_month"`
	Today     bool            `json:"today"`
	Orders    []OrderEntry    `json:"orders"`
	Fragments []FragmentEntry `json:"fragments"`
}

// OrderEntry is an order placed on the calendar
type OrderEntry struct {
	OrderID      string `json:"order_id"`
	OrderNumber  string `json:"order_number"`
	CustomerName string `json:"customer_name"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
}

// FragmentEntry is a fragment placed on the calendar with the display data
// of its order and line
type FragmentEntry struct {
	models.OrderFragment
	OrderNumber  string `json:"order_number"`
	CustomerName string `json:"customer_name"`
	Priority     string `json:"priority"`
	OPNumber     string `json:"op_number"`
}

// Month is the calendar of one month, padded to whole weeks
type Month struct {
	Month string `json:"month"`
	Days  []*Day `json:"days"`

	loc *time.Location
}

// ParseMonth parses YYYY-MM in loc. An empty value means the month of now.
func ParseMonth(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if value == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation("2006-01", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", value)
	}
	return t, nil
}

// MonthGrid builds the cells from the Sunday on or before the first of the
// month through the Saturday on or after its last day.
func MonthGrid(month time.Time, now time.Time, loc *time.Location) *Month {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	today := dayKey(now, loc)
	m := &Month{Month: first.Format("2006-01"), loc: loc}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		m.Days = append(m.Days, &Day{
			Date:      key,
			InMonth:   d.Month() == first.Month(),
			Today:     key == today,
			Orders:    []OrderEntry{},
			Fragments: []FragmentEntry{},
		})
	}
	return m
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// Cell returns the grid cell holding t's calendar day, or nil
func (m *Month) Cell(t time.Time) *Day {
	key := dayKey(t, m.loc)
	for _, d := range m.Days {
		if d.Date == key {
			return d
		}
	}
	return nil
}

// Place buckets orders by scheduled date and their fragments by their own
// scheduled dates. skus maps catalog product ids to SKUs for OP numbers.
func (m *Month) Place(orders []models.Order, skus map[string]string) {
	index := make(map[string]*Day, len(m.Days))
	for _, d := range m.Days {
		index[d.Date] = d
	}

	for i := range orders {
		o := &orders[i]
		if o.ScheduledDate != nil {
			if d, ok := index[dayKey(*o.ScheduledDate, m.loc)]; ok {
				d.Orders = append(d.Orders, OrderEntry{
					OrderID:      o.ID,
					OrderNumber:  o.OrderNumber,
					CustomerName: o.CustomerName,
					Status:       o.Status,
					Priority:     o.Priority,
				})
			}
		}

		for fi, f := range o.Fragments {
			if f.ScheduledDate == nil {
				continue
			}
			d, ok := index[dayKey(*f.ScheduledDate, m.loc)]
			if !ok {
				continue
			}
			d.Fragments = append(d.Fragments, DescribeFragment(o, fi, skus))
		}
	}
}

// DescribeFragment fills a fragment's display data. Product fields come from
// the fragment first, then from its owning line, the line at the fragment's
// position or the first line.
func DescribeFragment(order *models.Order, index int, skus map[string]string) FragmentEntry {
	f := order.Fragments[index]
	line, ok := fragmentLine(order, index)

	entry := FragmentEntry{
		OrderFragment: f,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		Priority:      order.Priority,
	}
	entry.OrderID = order.ID
	if ok {
		if entry.ProductName == "" {
			entry.ProductName = line.ProductName
		}
		if entry.Size == "" {
			entry.Size = line.Size
		}
		if entry.Color == "" {
			entry.Color = line.Color
		}
	}

	productID := f.ProductID
	if productID == "" && ok {
		productID = line.ProductID
	}
	entry.OPNumber = OPNumber(BaseCode(skus[productID]), entry.Size, entry.Color)
	return entry
}

func fragmentLine(order *models.Order, index int) (models.OrderProduct, bool) {
	if len(order.Products) == 0 {
		return models.OrderProduct{}, false
	}
	if i := LineOf(order, order.Fragments[index]); i >= 0 {
		return order.Products[i], true
	}
	if index < len(order.Products) {
		return order.Products[index], true
	}
	return order.Products[0], true
}

// BaseCode is the first run of two or three digits in a SKU
func BaseCode(sku string) string {
	if code := baseCodePattern.FindString(sku); code != "" {
		return code
	}
	return DefaultBaseCode
}

// OPNumber composes a production order number from the base code, the
// leading digits of the size and the first four letters of the colour, e.g.
// 100 + "138x188" + "Marrom" = 100138MARR.
func OPNumber(baseCode, size, color string) string {
	colorCode := []rune(strings.ToUpper(color))
	if len(colorCode) > 4 {
		colorCode = colorCode[:4]
	}
	return baseCode + sizePattern.FindString(size) + string(colorCode)
}

// PendingFilter selects orders for the approval list
type PendingFilter struct {
	Status   string `form:"status"`
	Customer string `form:"customer"`
	Search   string `form:"q"`
}

// StatusAll disables the status filter
const StatusAll = "all"

// Matches reports whether an order passes the filter. An empty status means
// awaiting_approval.
func (f PendingFilter) Matches(o *models.Order) bool {
	status := f.Status
	if status == "" {
		status = models.OrderStatusAwaitingApproval
	}
	if status != StatusAll && o.Status != status {
		return false
	}
	if f.Customer != "" && f.Customer != StatusAll && o.CustomerName != f.Customer {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(o.OrderNumber), term) ||
			strings.Contains(strings.ToLower(o.CustomerName), term)
	}
	return true
}

// FilterPending applies f to orders
func FilterPending(orders []models.Order, f PendingFilter) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for i := range orders {
		if f.Matches(&orders[i]) {
			out = append(out, orders[i])
		}
	}
	return out
}
