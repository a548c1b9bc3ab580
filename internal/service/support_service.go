package service

import (
	"strings"
	"time"
)

const (
	SenderAgent    = "agent"
	SenderCustomer = "customer"
)

var supportOpeners = []string{
	"Hi there! 👋 I'm Grace from the BCC Kids store. How can I help with your order today?",
	"Ask me about order status, curriculum bundles, or payment questions and I'll get you quick answers.",
}

type supportRule struct {
	keywords []string
	reply    string
}

// 按顺序匹配，先命中先返回
var supportRules = []supportRule{
	{
		keywords: []string{"shipping", "delivery"},
		reply:    "Shipping update: orders leave our Indiana hub within 2 business days. You'll receive tracking via email as soon as a label is created.",
	},
	{
		keywords: []string{"status", "order"},
		reply:    "To check status quickly, enter your confirmation number on the Order Status tab. I can look it up for you if you share the number here too!",
	},
	{
		keywords: []string{"payment", "card"},
		reply:    "All payments are processed securely. We accept major cards and church purchase orders. Just let us know if you need an invoice.",
	},
	{
		keywords: []string{"bulk", "discount"},
		reply:    "Great news: orders of 10 or more kits automatically receive tiered discounts in the cart. I can build a custom quote if you share quantities.",
	},
}

const supportFallback = "Thanks for reaching out! A team member will join the conversation shortly. Meanwhile, let me know your order number or question and we'll get it handled."

// SupportService 自动客服：开场白 + 关键词回复
type SupportService struct {
	now func() time.Time
}

func NewSupportService() *SupportService {
	return &SupportService{now: time.Now}
}

// Reply picks the canned answer for a customer message.
func (s *SupportService) Reply(text string) string {
	normalized := strings.ToLower(text)
	for _, rule := range supportRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.reply
			}
		}
	}
	return supportFallback
}

func (s *SupportService) ensureOpened(sess *Session) {
	if len(sess.transcript) > 0 {
		return
	}
	now := s.now()
	for _, text := range supportOpeners {
		sess.transcript = append(sess.transcript, ChatMessage{Sender: SenderAgent, Text: text, Timestamp: now})
	}
}

// Transcript 返回会话的对话记录，首次访问时写入开场白
func (s *SupportService) Transcript(sess *Session) []ChatMessage {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.ensureOpened(sess)
	return append([]ChatMessage(nil), sess.transcript...)
}

// Send 记录客户消息和自动回复，返回完整对话
func (s *SupportService) Send(sess *Session, text string) ([]ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.ensureOpened(sess)
	now := s.now()
	sess.transcript = append(sess.transcript,
		ChatMessage{Sender: SenderCustomer, Text: text, Timestamp: now},
		ChatMessage{Sender: SenderAgent, Text: s.Reply(text), Timestamp: now},
	)
	return append([]ChatMessage(nil), sess.transcript...), nil
}
