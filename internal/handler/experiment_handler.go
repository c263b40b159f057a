// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/labnote/internal/experiment"
	"github.com/hitoshi/labnote/internal/middleware"
	"github.com/hitoshi/labnote/internal/model"
)

// ExperimentServiceInterface は実験ハンドラーが必要とするサービスインターフェース。
type ExperimentServiceInterface interface {
	// List はユーザーの実験一覧をID降順で返す。
	List(ctx context.Context, userID string) ([]*model.Experiment, error)
	// Get は指定IDの実験を所有者スコープで取得する。
	Get(ctx context.Context, userID string, id int64) (*model.Experiment, error)
	// Create は実験を作成し、タグと材料をリコンサイルして関連付ける。
	Create(ctx context.Context, userID string, input experiment.Input) (*model.Experiment, error)
	// ApplyUpdate は実験を部分更新する。nilのフィールドは変更しない。
	ApplyUpdate(ctx context.Context, userID string, id int64, upd experiment.Update) (*model.Experiment, error)
	// Delete は指定IDの実験を所有者スコープで削除する。
	Delete(ctx context.Context, userID string, id int64) error
}

// ExperimentHandler は実験管理のHTTPハンドラー。
type ExperimentHandler struct {
	service       ExperimentServiceInterface
	linkValidator LinkValidator
}

// NewExperimentHandler はExperimentHandlerを生成する。
// linkValidatorがnilの場合、リンクフィールドの検証は行わない。
func NewExperimentHandler(service ExperimentServiceInterface, linkValidator LinkValidator) *ExperimentHandler {
	return &ExperimentHandler{
		service:       service,
		linkValidator: linkValidator,
	}
}

// attributeRef は書き込みリクエスト内の属性記述子。
// 属性は常に名前で参照する。その他のフィールドは無視される。
type attributeRef struct {
	Name string `json:"name"`
}

// attributeResponse は属性のAPIレスポンス。
type attributeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// experimentSummaryResponse は実験一覧のAPIレスポンス。説明文は含まない。
type experimentSummaryResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	TimeMinutes int                 `json:"time_minutes"`
	Price       string              `json:"price"`
	Link        string              `json:"link,omitempty"`
	Tags        []attributeResponse `json:"tags"`
	Ingredients []attributeResponse `json:"ingredients"`
	CreatedAt   time.Time           `json:"created_at"`
}

// experimentDetailResponse は実験詳細のAPIレスポンス。説明文を含む。
type experimentDetailResponse struct {
	experimentSummaryResponse
	Description string `json:"description"`
}

// experimentCreateRequest は実験作成リクエストのボディ。
type experimentCreateRequest struct {
	Title       string         `json:"title"`
	TimeMinutes *int           `json:"time_minutes"`
	Price       *string        `json:"price"`
	Link        string         `json:"link"`
	Description string         `json:"description"`
	Tags        []attributeRef `json:"tags"`
	Ingredients []attributeRef `json:"ingredients"`
}

// experimentUpdateRequest は実験更新リクエストのボディ。
// nilのフィールドは「リクエストに含まれなかった」ことを意味する。
// TagsとIngredientsは空リストの指定（全解除）とフィールドなし（維持）を区別する。
type experimentUpdateRequest struct {
	Title       *string         `json:"title"`
	TimeMinutes *int            `json:"time_minutes"`
	Price       *string         `json:"price"`
	Link        *string         `json:"link"`
	Description *string         `json:"description"`
	Tags        *[]attributeRef `json:"tags"`
	Ingredients *[]attributeRef `json:"ingredients"`
}

// LinkValidator はリンクフィールドの検証関数。
type LinkValidator func(rawURL string) error

// List はユーザーの実験一覧を取得する。
// GET /api/experiments
func (h *ExperimentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(w, r)
	if err != nil {
		return
	}

	exps, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]experimentSummaryResponse, len(exps))
	for i, exp := range exps {
		results[i] = toExperimentSummaryResponse(exp)
	}

	writeJSON(w, http.StatusOK, results)
}

// Get は実験の詳細を取得する。
// GET /api/experiments/{id}
func (h *ExperimentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(w, r)
	if err != nil {
		return
	}

	exp, err := h.service.Get(r.Context(), userID, pathID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExperimentDetailResponse(exp))
}

// Create は実験を作成する。
// POST /api/experiments
func (h *ExperimentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(w, r)
	if err != nil {
		return
	}

	var req experimentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	input, apiErr := h.validateCreate(&req)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	exp, err := h.service.Create(r.Context(), userID, *input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toExperimentDetailResponse(exp))
}

// Update は実験を全体更新または部分更新する。
// PUT /api/experiments/{id} では必須フィールドの存在を要求し、
// PATCH /api/experiments/{id} では含まれたフィールドのみ更新する。
// タグ/材料リストはどちらの場合も「なし=維持、空=全解除」の意味を持つ。
func (h *ExperimentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(w, r)
	if err != nil {
		return
	}

	var req experimentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if r.Method == http.MethodPut {
		if req.Title == nil || req.TimeMinutes == nil || req.Price == nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("body", "title、time_minutes、priceは必須です"))
			return
		}
	}

	upd, apiErr := h.validateUpdate(&req)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	exp, err := h.service.ApplyUpdate(r.Context(), userID, pathID(r), *upd)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExperimentDetailResponse(exp))
}

// Delete は実験を削除する。
// DELETE /api/experiments/{id}
func (h *ExperimentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// validateCreate は作成リクエストを検証してサービス入力に変換する。
func (h *ExperimentHandler) validateCreate(req *experimentCreateRequest) (*experiment.Input, *model.APIError) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, model.NewValidationError("title", "必須です")
	}
	if len(req.Title) > maxTitleLength {
		return nil, model.NewValidationError("title", "長すぎます")
	}
	if req.TimeMinutes == nil {
		return nil, model.NewValidationError("time_minutes", "必須です")
	}
	if *req.TimeMinutes < 0 {
		return nil, model.NewValidationError("time_minutes", "0以上を指定してください")
	}
	if req.Price == nil {
		return nil, model.NewValidationError("price", "必須です")
	}
	price, ok := normalizePrice(*req.Price)
	if !ok {
		return nil, model.NewValidationError("price", "非負のdecimal値（小数点以下2桁まで）を指定してください")
	}
	if h.linkValidator != nil {
		if err := h.linkValidator(req.Link); err != nil {
			return nil, model.NewValidationError("link", err.Error())
		}
	}
	tags, apiErr := toAttributeInputs("tags", req.Tags)
	if apiErr != nil {
		return nil, apiErr
	}
	ingredients, apiErr := toAttributeInputs("ingredients", req.Ingredients)
	if apiErr != nil {
		return nil, apiErr
	}

	return &experiment.Input{
		Title:       req.Title,
		TimeMinutes: *req.TimeMinutes,
		Price:       price,
		Link:        req.Link,
		Description: req.Description,
		Tags:        tags,
		Ingredients: ingredients,
	}, nil
}

// validateUpdate は更新リクエストを検証してサービス入力に変換する。
func (h *ExperimentHandler) validateUpdate(req *experimentUpdateRequest) (*experiment.Update, *model.APIError) {
	upd := &experiment.Update{
		Title:       req.Title,
		TimeMinutes: req.TimeMinutes,
		Description: req.Description,
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, model.NewValidationError("title", "空にはできません")
		}
		if len(*req.Title) > maxTitleLength {
			return nil, model.NewValidationError("title", "長すぎます")
		}
	}
	if req.TimeMinutes != nil && *req.TimeMinutes < 0 {
		return nil, model.NewValidationError("time_minutes", "0以上を指定してください")
	}
	if req.Price != nil {
		price, ok := normalizePrice(*req.Price)
		if !ok {
			return nil, model.NewValidationError("price", "非負のdecimal値（小数点以下2桁まで）を指定してください")
		}
		upd.Price = &price
	}
	if req.Link != nil {
		if h.linkValidator != nil {
			if err := h.linkValidator(*req.Link); err != nil {
				return nil, model.NewValidationError("link", err.Error())
			}
		}
		upd.Link = req.Link
	}
	if req.Tags != nil {
		tags, apiErr := toAttributeInputs("tags", *req.Tags)
		if apiErr != nil {
			return nil, apiErr
		}
		upd.Tags = &tags
	}
	if req.Ingredients != nil {
		ingredients, apiErr := toAttributeInputs("ingredients", *req.Ingredients)
		if apiErr != nil {
			return nil, apiErr
		}
		upd.Ingredients = &ingredients
	}

	return upd, nil
}

// --- ヘルパー関数 ---

const (
	maxTitleLength = 255
	maxNameLength  = 255
)

// toAttributeInputs は属性記述子のリストを検証してサービス入力に変換する。
// 空リストは空のまま返す（更新時の全解除の意味を保つ）。
func toAttributeInputs(field string, refs []attributeRef) ([]experiment.AttributeInput, *model.APIError) {
	inputs := make([]experiment.AttributeInput, 0, len(refs))
	for _, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		if name == "" {
			return nil, model.NewValidationError(field, "nameは必須です")
		}
		if len(name) > maxNameLength {
			return nil, model.NewValidationError(field, "nameが長すぎます")
		}
		inputs = append(inputs, experiment.AttributeInput{Name: name})
	}
	return inputs, nil
}

// normalizePrice はpriceフィールドの値を検証し、正規化したdecimal文字列を返す。
// 非負で小数点以下2桁までの数値のみ許可する（例: "5.22", "10", "0.5"）。
func normalizePrice(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" || len(intPart) > 8 || !isDigits(intPart) {
		return "", false
	}
	if hasFrac {
		if fracPart == "" || len(fracPart) > 2 || !isDigits(fracPart) {
			return "", false
		}
	}
	return s, true
}

// isDigits は文字列がASCII数字のみで構成されているかを返す。
func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// pathID はURLパスの{id}パラメータをint64として取り出す。
// 数値として解析できない場合は0を返し、後段の所有者スコープクエリで
// not-found扱いになる（存在しないIDと同じ振る舞い）。
func pathID(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// toExperimentSummaryResponse はmodel.Experimentから一覧用レスポンスに変換する。
func toExperimentSummaryResponse(exp *model.Experiment) experimentSummaryResponse {
	return experimentSummaryResponse{
		ID:          exp.ID,
		Title:       exp.Title,
		TimeMinutes: exp.TimeMinutes,
		Price:       exp.Price,
		Link:        exp.Link,
		Tags:        toAttributeResponses(exp.Tags),
		Ingredients: toAttributeResponses(exp.Ingredients),
		CreatedAt:   exp.CreatedAt,
	}
}

// toExperimentDetailResponse はmodel.Experimentから詳細用レスポンスに変換する。
func toExperimentDetailResponse(exp *model.Experiment) experimentDetailResponse {
	return experimentDetailResponse{
		experimentSummaryResponse: toExperimentSummaryResponse(exp),
		Description:               exp.Description,
	}
}

// toAttributeResponses はmodel.Attributeのリストをレスポンス型に変換する。
// nilの場合も空リストとしてシリアライズする。
func toAttributeResponses(attrs []model.Attribute) []attributeResponse {
	results := make([]attributeResponse, len(attrs))
	for i, attr := range attrs {
		results[i] = attributeResponse{ID: attr.ID, Name: attr.Name}
	}
	return results
}

// requireUserID はコンテキストから認証済みユーザーIDを取得する。
// 取得できない場合は401を書き込み、エラーを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, error) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return "", err
	}
	return userID, nil
}

// invalidBodyError はリクエストボディ解析失敗のエラーを生成する。
func invalidBodyError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// apiErrorResponse はAPIエラーレスポンスのボディ。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 所有権エラーは存在漏洩を防ぐためnot-foundとして扱われる（403は返さない）。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeExperimentNotFound, model.ErrCodeAttributeNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidation, model.ErrCodeDuplicateEmail, model.ErrCodeDuplicateName:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
