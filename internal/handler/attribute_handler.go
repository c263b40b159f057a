package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/labnote/internal/model"
)

// AttributeServiceInterface は属性ハンドラーが必要とするサービスインターフェース。
// タグと材料は同じ契約を共有し、同じハンドラーで提供される。
type AttributeServiceInterface interface {
	// Kind はこのサービスが扱う属性種別を返す。
	Kind() model.AttributeKind
	// List はユーザーの属性一覧を名前降順で返す。
	// assignedOnlyがtrueの場合、ユーザーの実験に関連付けられた属性のみ返す。
	List(ctx context.Context, userID string, assignedOnly bool) ([]model.Attribute, error)
	// Rename は属性の名前を変更する。
	Rename(ctx context.Context, userID string, id int64, name string) (*model.Attribute, error)
	// Delete は指定IDの属性を所有者スコープで削除する。
	Delete(ctx context.Context, userID string, id int64) error
}

// AttributeHandler はタグ・材料管理のHTTPハンドラー。
type AttributeHandler struct {
	service AttributeServiceInterface
}

// NewAttributeHandler はAttributeHandlerを生成する。
func NewAttributeHandler(service AttributeServiceInterface) *AttributeHandler {
	return &AttributeHandler{
		service: service,
	}
}

// attributeUpdateRequest は属性更新リクエストのボディ。
type attributeUpdateRequest struct {
	Name string `json:"name"`
}

// List はユーザーの属性一覧を取得する。
// GET /api/tags?assigned_only=1
// GET /api/ingredients?assigned_only=1
func (h *AttributeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(w, r)
	if err != nil {
		return
	}

	attrs, err := h.service.List(r.Context(), userID, isTruthy(r.URL.Query().Get("assigned_only")))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttributeResponses(attrs))
}

// Update は属性の名前を変更する。
// PATCH /api/tags/{id}
// PATCH /api/ingredients/{id}
func (h *AttributeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(w, r)
	if err != nil {
		return
	}

	var req attributeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("name", "必須です"))
		return
	}
	if len(name) > maxNameLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("name", "長すぎます"))
		return
	}

	attr, err := h.service.Rename(r.Context(), userID, pathID(r), name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, attributeResponse{ID: attr.ID, Name: attr.Name})
}

// Delete は属性を削除する。
// DELETE /api/tags/{id}
// DELETE /api/ingredients/{id}
func (h *AttributeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(w, r)
	if err != nil {
		return
	}

	if err := h.service.Delete(r.Context(), userID, pathID(r)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// isTruthy はクエリパラメータの値を真偽値として解釈する。
// "1"と"true"（大文字小文字問わず）を真とみなす。
func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true":
		return true
	default:
		return false
	}
}
