package service

import (
	"context"
	"errors"
	"testing"

	"furniture-erp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerCreate_Validation(t *testing.T) {
	e := newTestEnv()

	tests := []struct {
		name  string
		input CustomerInput
	}{
		{"blank name", CustomerInput{Name: "   "}},
		{"unknown type", CustomerInput{Name: "Ana", Type: "company"}},
		{"discount above 100", CustomerInput{Name: "Ana", DefaultDiscount: money("100.01")}},
		{"negative discount", CustomerInput{Name: "Ana", DefaultDiscount: money("-1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			_, err := e.customers.Create(context.Background(), &in)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestCustomerCreateDefaultsToIndividual(t *testing.T) {
	e := newTestEnv()

	c, err := e.customers.Create(context.Background(), &CustomerInput{Name: " Ana Souza "})

	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", c.Name)
	assert.Equal(t, models.CustomerTypeIndividual, c.Type)
}

func TestCustomerUpdate(t *testing.T) {
	e := newTestEnv()
	c := seedCustomer(t, e, "Loja Azul", "5")

	updated, err := e.customers.Update(context.Background(), c.ID, &CustomerInput{
		Name:             "Loja Azul Matriz",
		Type:             models.CustomerTypeBusiness,
		DefaultDiscount:  money("7.5"),
		PaymentCondition: "30/60",
	})
	require.NoError(t, err)
	assert.Equal(t, "Loja Azul Matriz", updated.Name)
	assertMoney(t, "7.5", updated.DefaultDiscount)

	_, err = e.customers.Update(context.Background(), "missing", &CustomerInput{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCustomerHistory(t *testing.T) {
	e := newTestEnv()
	c := seedCustomer(t, e, "Loja Azul", "0")
	other := seedCustomer(t, e, "Casa Verde", "0")
	first, _, err := e.orders.CreateOrder(context.Background(), wizardRequest(c.ID), true)
	require.NoError(t, err)
	second, _, err := e.orders.CreateOrder(context.Background(), wizardRequest(c.ID), true)
	require.NoError(t, err)
	_, _, err = e.orders.CreateOrder(context.Background(), wizardRequest(other.ID), true)
	require.NoError(t, err)

	h, err := e.customers.History(context.Background(), c.ID)

	require.NoError(t, err)
	assert.Equal(t, 2, h.OrderCount)
	require.Len(t, h.Orders, 2)
	assert.Equal(t, second.ID, h.Orders[0].ID)
	assert.True(t, first.TotalAmount.Add(second.TotalAmount).Equal(h.TotalValue))

	_, err = e.customers.History(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCustomerListSearch(t *testing.T) {
	e := newTestEnv()
	seedCustomer(t, e, "Loja Azul", "0")
	seedCustomer(t, e, "Casa Verde", "0")

	all, err := e.customers.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := e.customers.List(context.Background(), " AZUL ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Loja Azul", found[0].Name)
}
