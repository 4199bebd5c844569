// Package kanban models the work-order board: status columns and moves between them.
package kanban

import (
	"slices"
	"time"
)

// Status is a work-order column.
type Status string

const (
	StatusReception    Status = "recepcion"
	StatusDiagnosis    Status = "diagnostico"
	StatusInRepair     Status = "en_reparacion"
	StatusQualityCheck Status = "control_calidad"
	StatusReady        Status = "listo"
	StatusDelivered    Status = "entregado"
)

// Columns returns the board columns in display order.
func Columns() []Status {
	return []Status{
		StatusReception,
		StatusDiagnosis,
		StatusInRepair,
		StatusQualityCheck,
		StatusReady,
		StatusDelivered,
	}
}

// Valid reports whether s is a known column.
func (s Status) Valid() bool { return slices.Contains(Columns(), s) }

// Label is the column heading.
func (s Status) Label() string {
	switch s {
	case StatusReception:
		return "Recepción"
	case StatusDiagnosis:
		return "Diagnóstico"
	case StatusInRepair:
		return "En reparación"
	case StatusQualityCheck:
		return "Control de calidad"
	case StatusReady:
		return "Listo"
	case StatusDelivered:
		return "Entregado"
	default:
		return string(s)
	}
}

// WorkOrder is a card on the board.
type WorkOrder struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"taller_id"`
	Number    int64     `json:"numero"`
	Plate     string    `json:"placa"`
	Customer  string    `json:"cliente"`
	Summary   string    `json:"descripcion"`
	Status    Status    `json:"estado"`
	Position  int       `json:"posicion"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Column is one status lane with its cards.
type Column struct {
	Status Status      `json:"status"`
	Label  string      `json:"label"`
	Orders []WorkOrder `json:"orders"`
}

// Board is the full kanban view for a tenant.
type Board struct {
	TenantID string   `json:"taller_id"`
	Columns  []Column `json:"columns"`
}

// BuildBoard groups orders into columns. Orders with unknown statuses are dropped.
func BuildBoard(tenantID string, orders []WorkOrder) Board {
	idx := make(map[Status]int, len(Columns()))
	b := Board{TenantID: tenantID, Columns: make([]Column, 0, len(Columns()))}
	for i, st := range Columns() {
		idx[st] = i
		b.Columns = append(b.Columns, Column{Status: st, Label: st.Label(), Orders: []WorkOrder{}})
	}
	for _, o := range orders {
		i, ok := idx[o.Status]
		if !ok {
			continue
		}
		b.Columns[i].Orders = append(b.Columns[i].Orders, o)
	}
	for i := range b.Columns {
		slices.SortStableFunc(b.Columns[i].Orders, func(a, c WorkOrder) int {
			return a.Position - c.Position
		})
	}
	return b
}

// MoveRequest moves a card between columns. From is the status the client last saw;
// the move only applies if the stored status still matches.
type MoveRequest struct {
	TenantID string `validate:"required"`
	OrderID  string `validate:"required,uuid"`
	From     Status `validate:"required"`
	To       Status `validate:"required"`
	Position int    `validate:"gte=0"`
}
