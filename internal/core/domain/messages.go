package domain

import (
	"context"
	"errors"
	"strings"
)

// MessageKey names a user-facing message.
type MessageKey string

const (
	MsgProductNotFound     MessageKey = "product_not_found"
	MsgPartialFailure      MessageKey = "partial_failure"
	MsgRateLimited         MessageKey = "rate_limited"
	MsgInsufficientCredits MessageKey = "insufficient_credits"
	MsgTimedOut            MessageKey = "timed_out"
	MsgNotConnected        MessageKey = "not_connected"
	MsgNotConfigured       MessageKey = "not_configured"
	MsgNothingFound        MessageKey = "nothing_found"
	MsgGenerationFailed    MessageKey = "generation_failed"
	MsgUnexpected          MessageKey = "unexpected"
)

var messages = map[string]map[MessageKey]string{
	"en": {
		MsgProductNotFound:     "No product could be identified from this link. Check that it points to a product page.",
		MsgPartialFailure:      "Some sources could not be searched. Results from the other sources are shown.",
		MsgRateLimited:         "The AI service is busy. Wait a moment and try again.",
		MsgInsufficientCredits: "The AI service has run out of credits. Add credits to continue.",
		MsgTimedOut:            "The request took too long and was stopped. Try again with a new request.",
		MsgNotConnected:        "Your Pinterest account is not connected. Connect it and try again.",
		MsgNotConfigured:       "This feature is not configured on the server.",
		MsgNothingFound:        "No media could be extracted from this link.",
		MsgGenerationFailed:    "Video generation failed.",
		MsgUnexpected:          "Something went wrong. Please try again.",
	},
	"vi": {
		MsgProductNotFound:     "Không nhận diện được sản phẩm từ liên kết này. Hãy kiểm tra liên kết trang sản phẩm.",
		MsgPartialFailure:      "Một số nguồn không tìm được. Đang hiển thị kết quả từ các nguồn còn lại.",
		MsgRateLimited:         "Dịch vụ AI đang quá tải. Vui lòng chờ một lát rồi thử lại.",
		MsgInsufficientCredits: "Dịch vụ AI đã hết tín dụng. Vui lòng nạp thêm để tiếp tục.",
		MsgTimedOut:            "Yêu cầu quá thời gian và đã dừng. Vui lòng tạo yêu cầu mới.",
		MsgNotConnected:        "Tài khoản Pinterest chưa được kết nối. Hãy kết nối rồi thử lại.",
		MsgNotConfigured:       "Tính năng này chưa được cấu hình trên máy chủ.",
		MsgNothingFound:        "Không trích xuất được nội dung nào từ liên kết này.",
		MsgGenerationFailed:    "Tạo video thất bại.",
		MsgUnexpected:          "Đã có lỗi xảy ra. Vui lòng thử lại.",
	},
}

// Message returns the localized text for key. Unknown languages fall back to English.
func Message(key MessageKey, lang string) string {
	table, ok := messages[normalizeLang(lang)]
	if !ok {
		table = messages["en"]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	return messages["en"][MsgUnexpected]
}

// MessageKeyFor classifies err into a user-facing message key.
func MessageKeyFor(err error) MessageKey {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProductNotFound):
		return MsgProductNotFound
	case errors.Is(err, ErrRateLimited):
		return MsgRateLimited
	case errors.Is(err, ErrInsufficientCredits):
		return MsgInsufficientCredits
	case IsTimeout(err):
		return MsgTimedOut
	case errors.Is(err, ErrNotConnected):
		return MsgNotConnected
	case errors.Is(err, ErrNotConfigured):
		return MsgNotConfigured
	case errors.Is(err, ErrNothingFound):
		return MsgNothingFound
	}
	return MsgUnexpected
}

// UserMessage returns the localized message for err.
func UserMessage(err error, lang string) string {
	if err == nil {
		return ""
	}
	return Message(MessageKeyFor(err), lang)
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_,;"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}

type langKey struct{}

// WithLanguage attaches the caller's preferred message language to ctx.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LanguageFrom returns the language stored by WithLanguage, or "en".
func LanguageFrom(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return "en"
}
