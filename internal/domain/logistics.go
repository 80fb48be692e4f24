package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ============================================================
// Rotas
// ============================================================

// RouteStatus is the lifecycle state of a delivery route.
type RouteStatus string

const (
	RoutePlanned    RouteStatus = "PLANEJADA"
	RouteInProgress RouteStatus = "EM_EXECUCAO"
	RouteDone       RouteStatus = "CONCLUIDA"
)

// Label is the human label shown on pages.
func (s RouteStatus) Label() string {
	switch s {
	case RoutePlanned:
		return "Planejada"
	case RouteInProgress:
		return "Em Execução"
	case RouteDone:
		return "Concluída"
	}
	return string(s)
}

// Route is a delivery route (rota).
type Route struct {
	ID         int         `json:"id"`
	Name       string      `json:"nome"`
	Date       string      `json:"data"`
	Status     RouteStatus `json:"status"`
	Capacity   FlexFloat   `json:"capacidade_max"`
	WeightKg   FlexFloat   `json:"peso_total"`
	VolumeM3   FlexFloat   `json:"volume_total"`
	DistanceKm FlexFloat   `json:"distancia_total"`
	Stops      []RouteStop `json:"pedidos"`
}

// RouteStop associates an order with a route.
type RouteStop struct {
	OrderID   int  `json:"pedido_id"`
	Sequence  int  `json:"ordem_entrega"`
	Delivered bool `json:"entregue"`
}

// ============================================================
// Pedidos
// ============================================================

// Order is a delivery order (pedido).
type Order struct {
	ID        int          `json:"id"`
	NF        FlexString   `json:"nf"`
	Customer  string       `json:"cliente"`
	Address   string       `json:"endereco"`
	City      string       `json:"cidade"`
	Lat       FlexFloat    `json:"latitude"`
	Lng       FlexFloat    `json:"longitude"`
	WeightKg  FlexFloat    `json:"peso_total"`
	VolumeM3  FlexFloat    `json:"volume_total"`
	Items     []OrderItem  `json:"itens"`
	Routes    []OrderRoute `json:"rotas"`
	LegacyRef *int         `json:"rota"`
}

// OrderItem is a product line inside an order.
type OrderItem struct {
	ProductID   int       `json:"produto"`
	ProductName string    `json:"produto_nome"`
	Family      string    `json:"familia_nome"`
	Quantity    FlexFloat `json:"quantidade"`
}

// OrderRoute is a route an order is associated with.
type OrderRoute struct {
	ID     int         `json:"id"`
	Name   string      `json:"nome"`
	Status RouteStatus `json:"status"`
}

// Delivery status labels derived from route associations.
const (
	DeliveryDone       = "Concluída"
	DeliveryInProgress = "Em Execução"
	DeliveryPlanned    = "Planejada"
	DeliveryLinked     = "Rota vinculada"
	DeliveryPending    = "Pendente"
)

// DeliveryStatus derives the order status from its routes.
// The associated route list always wins over the legacy single reference.
func (o *Order) DeliveryStatus() string {
	if len(o.Routes) > 0 {
		allDone := true
		for _, r := range o.Routes {
			if r.Status == RouteInProgress {
				return DeliveryInProgress
			}
			if r.Status != RouteDone {
				allDone = false
			}
		}
		if allDone {
			return DeliveryDone
		}
		return DeliveryPlanned
	}
	if o.LegacyRef != nil {
		return DeliveryLinked
	}
	return DeliveryPending
}

// OrderDraft is the payload of a new order.
type OrderDraft struct {
	NF       string      `json:"nf"`
	Customer string      `json:"cliente"`
	Address  string      `json:"endereco"`
	City     string      `json:"cidade"`
	Lat      *float64    `json:"latitude,omitempty"`
	Lng      *float64    `json:"longitude,omitempty"`
	Items    []DraftItem `json:"itens"`
}

// DraftItem is one product line of an OrderDraft.
type DraftItem struct {
	ProductID int     `json:"produto"`
	Quantity  float64 `json:"quantidade"`
}

// Validate checks the draft before it is sent to the backend.
func (d *OrderDraft) Validate() error {
	if d.Customer == "" {
		return &ErrValidation{Field: "cliente", Message: "Informe o cliente"}
	}
	if d.Address == "" {
		return &ErrValidation{Field: "endereco", Message: "Informe o endereço"}
	}
	if len(d.Items) == 0 {
		return &ErrValidation{Field: "itens", Message: "Adicione ao menos um item"}
	}
	for _, it := range d.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return &ErrValidation{Field: "itens", Message: "Itens precisam de produto e quantidade positiva"}
		}
	}
	return nil
}

// SplitOutcome is the backend's answer to a split request.
type SplitOutcome struct {
	Detail string  `json:"detail"`
	Orders []Order `json:"pedidos"`
}

// Dashboard is the summary shown on the home screens.
type Dashboard struct {
	RoutesByStatus map[RouteStatus]int
	TotalRoutes    int
	TotalOrders    int
	PendingOrders  int
	CapacityKg     float64
	LoadedKg       float64
	Recent         []Route
}

// Count is the number of routes in status.
func (d *Dashboard) Count(status RouteStatus) int {
	return d.RoutesByStatus[status]
}

// Utilization is the loaded share of total route capacity, in percent.
func (d *Dashboard) Utilization() float64 {
	if d.CapacityKg <= 0 {
		return 0
	}
	return d.LoadedKg / d.CapacityKg * 100
}

// Product is a registered product.
type Product struct {
	ID       int       `json:"id"`
	Name     string    `json:"nome"`
	Family   string    `json:"familia_nome"`
	WeightKg FlexFloat `json:"peso"`
	VolumeM3 FlexFloat `json:"volume"`
}

// User is a staff account listed on the users screen.
type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"is_superuser"`
	ProfileName string `json:"perfil_nome"`
}

// ============================================================
// Lenient JSON scalars
// ============================================================

// FlexFloat accepts numbers, numeric strings (Django decimals) and null.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexString accepts strings, numbers and null.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(b)
	return nil
}

// Page is a Django REST list: either a bare array or {count, results}.
type Page[T any] struct {
	Count   int
	Results []T
}

func (p *Page[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &p.Results); err != nil {
			return err
		}
		p.Count = len(p.Results)
		return nil
	}
	var wrapped struct {
		Count   int `json:"count"`
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	p.Results = wrapped.Results
	p.Count = wrapped.Count
	if p.Count == 0 {
		p.Count = len(p.Results)
	}
	return nil
}
