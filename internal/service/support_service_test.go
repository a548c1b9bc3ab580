package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/bcc-marketplace/internal/cart"
	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
)

func TestSupportService_Reply(t *testing.T) {
	s := NewSupportService()
	tests := []struct {
		msg    string
		prefix string
	}{
		{"When will DELIVERY happen?", "Shipping update"},
		{"what's my order status", "To check status quickly"},
		{"Can I pay by card?", "All payments are processed securely"},
		{"bulk pricing for 20 kits", "Great news"},
		{"shipping for my order", "Shipping update"},
		{"hello", "Thanks for reaching out"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(s.Reply(tt.msg), tt.prefix), s.Reply(tt.msg))
		})
	}
}

func TestSupportService_Transcript(t *testing.T) {
	s := NewSupportService()
	sess := NewSessionStore(catalog.Default(), cart.DefaultPricing()).Create()

	opening := s.Transcript(sess)
	require.Len(t, opening, 2)
	assert.Equal(t, SenderAgent, opening[0].Sender)

	_, err := s.Send(sess, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	msgs, err := s.Send(sess, " where is my order? ")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, SenderCustomer, msgs[2].Sender)
	assert.Equal(t, "where is my order?", msgs[2].Text)
	assert.Equal(t, SenderAgent, msgs[3].Sender)

	assert.Len(t, s.Transcript(sess), 4)
}
