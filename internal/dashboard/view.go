package dashboard

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/stakeview/internal/csvexport"
	"github.com/vadiminshakov/stakeview/internal/domain"
	"github.com/vadiminshakov/stakeview/internal/pager"
)

const nativeUnit = "ETH"

// View is the JSON rendering of a State.
type View struct {
	Address        string     `json:"address"`
	DisplayAddress string     `json:"display_address"`
	ShortAddress   string     `json:"short_address"`
	Loading        bool       `json:"loading"`
	Error          string     `json:"error,omitempty"`
	LatestBalance  string     `json:"latest_balance,omitempty"`
	PriorBalance   string     `json:"prior_balance,omitempty"`
	TotalReward    string     `json:"total_reward,omitempty"`
	TotalRewardUSD string     `json:"total_reward_usd,omitempty"`
	Rows           []RowView  `json:"rows"`
	Pagination     *PageView  `json:"pagination,omitempty"`
	Export         ExportView `json:"export"`
}

// RowView is one formatted table row.
type RowView struct {
	BlockTime   string `json:"block_time"`
	BlockNumber int64  `json:"block_number"`
	PostBalance string `json:"post_balance"`
	PreBalance  string `json:"pre_balance"`
	Reward      string `json:"reward"`
	RewardUSD   string `json:"reward_usd"`
	TxHash      string `json:"tx_hash"`
	ShortHash   string `json:"short_hash"`
	TxURL       string `json:"tx_url"`
}

// PageView describes the pagination controls.
type PageView struct {
	PageSize    int   `json:"page_size"`
	PageIndex   int   `json:"page"`
	PageCount   int   `json:"page_count"`
	From        int   `json:"from"`
	To          int   `json:"to"`
	Total       int   `json:"total"`
	HasPrev     bool  `json:"has_prev"`
	HasNext     bool  `json:"has_next"`
	Window      []int `json:"window"`
	SizeOptions []int `json:"size_options"`
}

// ExportView describes the export session.
type ExportView struct {
	Phase     string `json:"phase"`
	SessionID string `json:"session_id,omitempty"`
}

// View renders s. When the last fetch failed the error replaces the data.
func (s State) View() View {
	v := View{
		Address:        s.Address,
		DisplayAddress: domain.DisplayAddress(s.Address),
		ShortAddress:   domain.Shorten(s.Address, 10, 8),
		Loading:        s.Loading,
		Rows:           []RowView{},
		Export: ExportView{
			Phase:     s.Gate.Phase().String(),
			SessionID: s.Gate.SessionID(),
		},
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
		return v
	}

	v.LatestBalance = FormatNative(s.Dataset.LatestBalance())
	v.PriorBalance = FormatNative(s.Dataset.PriorBalance())
	v.TotalReward = FormatNative(s.Dataset.TotalReward())
	v.TotalRewardUSD = FormatUSD(s.Dataset.TotalRewardUSD())

	page := s.Page()
	for _, r := range page.Rows {
		v.Rows = append(v.Rows, RowView{
			BlockTime:   r.Timestamp.UTC().Format(csvexport.TimeLayout),
			BlockNumber: r.BlockNumber,
			PostBalance: FormatNative(r.PostBalance),
			PreBalance:  FormatNative(r.PreBalance),
			Reward:      FormatNative(r.Reward),
			RewardUSD:   FormatUSD(r.RewardUSD),
			TxHash:      r.TxHash,
			ShortHash:   domain.Shorten(r.TxHash, 10, 8),
			TxURL:       domain.TxURL(r.TxHash),
		})
	}
	v.Pagination = &PageView{
		PageSize:    page.PageSize,
		PageIndex:   page.PageIndex,
		PageCount:   page.PageCount,
		From:        page.From(),
		To:          page.To(),
		Total:       page.Total,
		HasPrev:     page.HasPrev(),
		HasNext:     page.HasNext(),
		Window:      pager.Window(page.PageIndex, page.PageCount, pager.DefaultWindow),
		SizeOptions: pager.AllowedSizes,
	}

	return v
}

// FormatNative renders a native-unit amount, e.g. "11.000000 ETH".
func FormatNative(d decimal.Decimal) string {
	return d.StringFixed(6) + " " + nativeUnit
}

// FormatUSD renders a USD amount with grouping, e.g. "$1,050.00". It works on
// the decimal digits, so large amounts keep every digit.
func FormatUSD(d decimal.Decimal) string {
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	whole, frac, _ := strings.Cut(rounded.StringFixed(2), ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
