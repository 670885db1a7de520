// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/fitadmin/internal/model"
)

// maxBodyBytes はリクエストボディの上限。
const maxBodyBytes = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodePayload はリクエストボディをPayloadとして読み取る。
// 数値は精度を保つためjson.Numberのまま保持する。
func decodePayload(w http.ResponseWriter, r *http.Request) (model.Payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var payload model.Payload
	if err := dec.Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, model.NewInvalidRequestError("cuerpo demasiado grande")
		}
		return nil, model.NewInvalidRequestError("cuerpo JSON inválido")
	}
	if payload == nil {
		return nil, model.NewInvalidRequestError("se esperaba un objeto JSON")
	}
	return payload, nil
}

// payloadString は文字列値を返す。文字列以外や欠落は空文字列。
func payloadString(p model.Payload, keys ...string) string {
	for _, key := range keys {
		if s, ok := p[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// payloadInt は整数値を返す。フォーム由来の数値文字列も受け付ける。
// 欠落はnil、解釈できない値はInvalidFieldを返す。
func payloadInt(p model.Payload, key string) (*int64, error) {
	raw, ok := numericText(p, key)
	if !ok {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, model.NewInvalidFieldError(key, "debe ser un número entero")
	}
	return &n, nil
}

// payloadFloat は小数値を返す。payloadIntと同じ規則で解釈する。
func payloadFloat(p model.Payload, key string) (*float64, error) {
	raw, ok := numericText(p, key)
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, model.NewInvalidFieldError(key, "debe ser un número")
	}
	return &f, nil
}

func numericText(p model.Payload, key string) (string, bool) {
	switch v := p[key].(type) {
	case json.Number:
		return v.String(), true
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case nil:
		return "", false
	default:
		return "", true
	}
}
