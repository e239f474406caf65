package models

// -----------------------------------------------------------------------------
// MMergedView is the aggregate of the four snapshot slots. A nil slot means
// the kind has never been received.
// -----------------------------------------------------------------------------

type MMergedView struct {
	State  Document `json:"state"`
	Orders Document `json:"orders"`
	Config Document `json:"config"`
	Report Document `json:"report"`
}

func NewMergedView() *MMergedView {
	return &MMergedView{}
}

// Slot returns the document held for kind k.
func (v *MMergedView) Slot(k Kind) Document {
	switch k {
	case KindState:
		return v.State
	case KindOrders:
		return v.Orders
	case KindConfig:
		return v.Config
	case KindReport:
		return v.Report
	}
	return nil
}

// SetSlot replaces the document held for kind k.
func (v *MMergedView) SetSlot(k Kind, doc Document) {
	switch k {
	case KindState:
		v.State = doc
	case KindOrders:
		v.Orders = doc
	case KindConfig:
		v.Config = doc
	case KindReport:
		v.Report = doc
	}
}

// Clone returns a copy that is safe to hand to another goroutine.
func (v *MMergedView) Clone() *MMergedView {
	return &MMergedView{
		State:  v.State.Clone(),
		Orders: v.Orders.Clone(),
		Config: v.Config.Clone(),
		Report: v.Report.Clone(),
	}
}

// -----------------------------------------------------------------------------
// Typed accessors. An absent slot yields nil; fields that do not fit their
// type read as zero.
// -----------------------------------------------------------------------------

func (v *MMergedView) StateSnapshot() *MStateSnapshot {
	if v.State == nil {
		return nil
	}
	var s MStateSnapshot
	v.State.DecodeLenient(&s)
	return &s
}

// OrdersSnapshot falls back to empty lists when orders were never received
// or a list is not an array.
func (v *MMergedView) OrdersSnapshot() *MOrdersSnapshot {
	var o MOrdersSnapshot
	if v.Orders != nil {
		v.Orders.DecodeLenient(&o)
	}
	if o.Open == nil {
		o.Open = []MOrder{}
	}
	if o.Closed == nil {
		o.Closed = []MOrder{}
	}
	return &o
}

func (v *MMergedView) ConfigSnapshot() *MConfigSnapshot {
	if v.Config == nil {
		return nil
	}
	var c MConfigSnapshot
	v.Config.DecodeLenient(&c)
	return &c
}

func (v *MMergedView) ReportSnapshot() *MReportSnapshot {
	if v.Report == nil {
		return nil
	}
	var r MReportSnapshot
	v.Report.DecodeLenient(&r)
	return &r
}
