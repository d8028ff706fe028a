package conversation

import "strings"

// FAQEntry is one guided canned answer: a keyword predicate over normalized
// text, the reply text, and optional screenshot images.
type FAQEntry struct {
	Key       string
	Match     func(text string) bool
	Text      string
	ImageURLs []string
}

const faqKeyPasswordReset = "password-reset"

// faqEntries is evaluated top to bottom, first match wins. Order matters:
// the English-qualified payment entry must sit above the generic payment
// entry or it would never be reached.
var faqEntries = []FAQEntry{
	{
		Key: "payment-screen-en",
		Match: func(text string) bool {
			return mentionsPayment(text) && containsAny(text, "english", "英語")
		},
		Text: "お支払い画面を英語表示に切り替える手順はこちらの画像をご覧ください。画面右上の「Language」から「English」を選択できます。",
		ImageURLs: []string{
			"https://toyutoyu.com/wp-content/uploads/line-faq/payment-english-1.png",
			"https://toyutoyu.com/wp-content/uploads/line-faq/payment-english-2.png",
		},
	},
	{
		Key:   "payment-screen",
		Match: mentionsPayment,
		Text:  "お支払い画面の操作手順はこちらの画像をご覧ください。クレジットカードのほか、コンビニ払いもご利用いただけます。",
		ImageURLs: []string{
			"https://toyutoyu.com/wp-content/uploads/line-faq/payment-1.png",
			"https://toyutoyu.com/wp-content/uploads/line-faq/payment-2.png",
			"https://toyutoyu.com/wp-content/uploads/line-faq/payment-3.png",
		},
	},
	{
		Key: faqKeyPasswordReset,
		Match: func(text string) bool {
			return mentionsPassword(text) &&
				containsAny(text, "忘れ", "リセット", "再設定", "再発行", "わからない", "わすれ", "reset", "forgot")
		},
		Text: "パスワードの再設定はログイン画面の「パスワードをお忘れですか？」から行えます。手順はこちらの画像をご覧ください。",
		ImageURLs: []string{
			"https://toyutoyu.com/wp-content/uploads/line-faq/password-reset.png",
		},
	},
	{
		Key: "how-to-use",
		Match: func(text string) bool {
			return containsAny(text, "使い方", "つかいかた", "はじめかた", "始め方")
		},
		Text: "とゆとゆの基本的な使い方はこちらの画像をご覧ください。詳しいガイドは https://toyutoyu.com/guide/ にあります。",
		ImageURLs: []string{
			"https://toyutoyu.com/wp-content/uploads/line-faq/how-to-use.png",
		},
	},
}

// MatchFAQ returns the first guided entry whose predicate accepts the
// normalized text, or nil.
func MatchFAQ(text string) *FAQEntry {
	for i := range faqEntries {
		if faqEntries[i].Match(text) {
			return &faqEntries[i]
		}
	}
	return nil
}

func mentionsPayment(text string) bool {
	return containsAny(text, "支払", "決済", "payment")
}

func mentionsPassword(text string) bool {
	return containsAny(text, "パスワード", "password", "ぱすわーど")
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
