package testutil

import (
	"context"
	"database/sql"
	"time"
)

// ShopFixture describes a tenant and its members as inserted by SeedShop.
type ShopFixture struct {
	TenantID string
	Status   string
	TrialEnd *time.Time
	Members  map[string]string // user id -> stored role
	Orders   []string
}

// ShopBuilder provides a fluent interface for inserting a tenant with members and orders.
type ShopBuilder struct {
	name       string
	status     string
	trialStart *time.Time
	trialEnd   *time.Time
	members    [][2]string
	orders     []OrderSeed
}

// OrderSeed is a work order inserted by ShopBuilder.
type OrderSeed struct {
	Plate    string
	Customer string
	Status   string
	Position int
}

// NewShop creates a ShopBuilder for a trial shop whose window is still open.
func NewShop(name string) *ShopBuilder {
	start := TestTime().Add(-7 * 24 * time.Hour)
	end := TestTime().Add(7 * 24 * time.Hour)
	return &ShopBuilder{name: name, status: "prueba", trialStart: &start, trialEnd: &end}
}

// WithStatus sets the stored subscription status (prueba, activo, expirado).
func (b *ShopBuilder) WithStatus(status string) *ShopBuilder {
	b.status = status
	return b
}

// WithTrialEnd sets the trial end; nil clears the window.
func (b *ShopBuilder) WithTrialEnd(end *time.Time) *ShopBuilder {
	b.trialEnd = end
	return b
}

// WithMember assigns userID the given stored role in this shop.
func (b *ShopBuilder) WithMember(userID, storedRole string) *ShopBuilder {
	b.members = append(b.members, [2]string{userID, storedRole})
	return b
}

// WithOrder adds a work order.
func (b *ShopBuilder) WithOrder(o OrderSeed) *ShopBuilder {
	b.orders = append(b.orders, o)
	return b
}

// Seed inserts the shop and returns its fixture.
func (b *ShopBuilder) Seed(t TestingTB, db *sql.DB) ShopFixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := ShopFixture{Status: b.status, TrialEnd: b.trialEnd, Members: map[string]string{}}
	err := db.QueryRowContext(ctx, `
		INSERT INTO talleres (nombre, estado_suscripcion, fecha_inicio_prueba, fecha_fin_prueba)
		VALUES ($1, $2, $3, $4) RETURNING id::text`,
		b.name, b.status, b.trialStart, b.trialEnd).Scan(&fx.TenantID)
	if err != nil {
		t.Fatalf("seed taller: %v", err)
	}

	for _, m := range b.members {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO usuarios_roles (user_id, rol, taller_id) VALUES ($1, $2, $3)`,
			m[0], m[1], fx.TenantID); err != nil {
			t.Fatalf("seed usuarios_roles: %v", err)
		}
		fx.Members[m[0]] = m[1]
	}

	for i, o := range b.orders {
		status := o.Status
		if status == "" {
			status = "recepcion"
		}
		var id string
		err := db.QueryRowContext(ctx, `
			INSERT INTO ordenes (taller_id, numero, placa, cliente, descripcion, estado, posicion)
			VALUES ($1, $2, $3, $4, '', $5, $6) RETURNING id::text`,
			fx.TenantID, i+1, o.Plate, o.Customer, status, o.Position).Scan(&id)
		if err != nil {
			t.Fatalf("seed ordenes: %v", err)
		}
		fx.Orders = append(fx.Orders, id)
	}
	return fx
}

// SeedPlatformUser inserts an assignment with no tenant (insurer or super admin).
func SeedPlatformUser(t TestingTB, db *sql.DB, userID, storedRole string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO usuarios_roles (user_id, rol, taller_id) VALUES ($1, $2, NULL)`,
		userID, storedRole); err != nil {
		t.Fatalf("seed usuarios_roles: %v", err)
	}
}
