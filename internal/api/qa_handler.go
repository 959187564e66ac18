package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"careqa/internal/domain/notes"
	"careqa/internal/domain/qa"
	applog "careqa/internal/platform/log"
)

// QAHandler 问答与文档管理 API
type QAHandler struct {
	lazy          *qa.LazyService
	docs          qa.DocumentStore
	parsers       *qa.ParserRegistry
	answerTimeout time.Duration
	maxFileMB     int
}

// NewQAHandler 创建问答处理器
func NewQAHandler(lazy *qa.LazyService, docs qa.DocumentStore, answerTimeout time.Duration, maxFileMB int) *QAHandler {
	if maxFileMB <= 0 {
		maxFileMB = 20
	}
	return &QAHandler{
		lazy:          lazy,
		docs:          docs,
		parsers:       qa.NewParserRegistry(),
		answerTimeout: answerTimeout,
		maxFileMB:     maxFileMB,
	}
}

// RegisterRoutes 注册问答与文档路由
func (h *QAHandler) RegisterRoutes(r chi.Router) {
	r.Route("/questions", func(r chi.Router) {
		r.Post("/answer", h.AnswerQuestion)
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.CreateDocument)
		r.Post("/upload", h.UploadDocument)
		r.Get("/", h.ListDocuments)
		r.Get("/{id}", h.GetDocument)
	})
}

// --- 问答 ---

type answerRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// AnswerQuestion 回答问题：语义缓存 → 检索 → 生成 → 记录
func (h *QAHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	ctx := r.Context()
	if h.answerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.answerTimeout)
		defer cancel()
	}

	// 首个请求触发索引构建，后续请求复用同一服务实例
	svc, err := h.lazy.Get(ctx)
	if err != nil {
		applog.Error("[QA] Service initialization failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "question answering service unavailable")
		return
	}

	answer, err := svc.Answer(ctx, req.Question)
	if err != nil {
		applog.Error("[QA] Answer failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, &answerResponse{Answer: answer})
}

// --- 文档管理 ---

type createDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateDocument 创建文档。
// 文档索引在服务启动时构建，这里新建的文档要等下次重启才可被检索到。
func (h *QAHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	doc, err := h.docs.InsertDocument(r.Context(), req.Title, req.Content)
	if err != nil {
		applog.Error("[QA] Create document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// UploadDocument 文件上传入库（multipart/form-data，字段 file）。
// 支持 md/txt/pdf/docx，解析为纯文本后存储。
func (h *QAHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.maxFileMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large or invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	parser, err := h.parsers.Get(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := parser.Parse(file, header.Filename)
	if err != nil {
		applog.Error("[QA] Parse uploaded file failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "failed to parse file")
		return
	}
	if result.Content == "" {
		writeError(w, http.StatusUnprocessableEntity, "no text content extracted from file")
		return
	}

	// 标题优先级：表单字段 > 解析出的标题 > 文件名
	title := r.FormValue("title")
	if title == "" {
		title = result.Title
	}
	if title == "" {
		title = qa.TitleFromFilename(header.Filename)
	}

	doc, err := h.docs.InsertDocument(r.Context(), title, result.Content)
	if err != nil {
		applog.Error("[QA] Store uploaded document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	applog.Info("[QA] Document uploaded",
		"id", doc.ID,
		"filename", header.Filename,
		"content_length", len(result.Content),
	)
	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments 列出全部文档
func (h *QAHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.ListDocuments(r.Context())
	if err != nil {
		applog.Error("[QA] List documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []qa.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument 按 ID 获取文档
func (h *QAHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.docs.GetDocument(r.Context(), id)
	if err != nil {
		applog.Error("[QA] Get document failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ── 医疗笔记 ─────────────────────────────────────────────────

// NotesHandler 医疗笔记 API：摘要、结构化抽取、FHIR 转换
type NotesHandler struct {
	summarizer *notes.Summarizer
	extractor  *notes.Extractor
}

// NewNotesHandler 创建笔记处理器
func NewNotesHandler(summarizer *notes.Summarizer, extractor *notes.Extractor) *NotesHandler {
	return &NotesHandler{summarizer: summarizer, extractor: extractor}
}

// RegisterRoutes 注册笔记路由
func (h *NotesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notes", func(r chi.Router) {
		r.Post("/summarize", h.Summarize)
		r.Post("/extract", h.Extract)
		r.Post("/fhir", h.ConvertFHIR)
	})
}

type summarizeRequest struct {
	Content string `json:"content"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize 生成医疗笔记摘要
func (h *NotesHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), req.Content)
	if err != nil {
		applog.Error("[Notes] Summarize failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize note")
		return
	}
	writeJSON(w, http.StatusOK, &summarizeResponse{Summary: summary})
}

type extractRequest struct {
	Data string `json:"data"`
}

type extractResponse struct {
	StructuredData *notes.StructuredData `json:"structured_data"`
}

// Extract 从医疗笔记抽取结构化数据
func (h *NotesHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Data == "" {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}

	structured, err := h.extractor.Extract(r.Context(), req.Data)
	if err != nil {
		applog.Error("[Notes] Extract failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to extract structured data")
		return
	}
	writeJSON(w, http.StatusOK, &extractResponse{StructuredData: structured})
}

type fhirRequest struct {
	StructuredData *notes.StructuredData `json:"structured_data"`
}

type fhirResponse struct {
	FHIRBundle *notes.Bundle `json:"fhir_bundle"`
}

// ConvertFHIR 将结构化医疗数据转换为 FHIR Bundle
func (h *NotesHandler) ConvertFHIR(w http.ResponseWriter, r *http.Request) {
	var req fhirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StructuredData == nil {
		writeError(w, http.StatusBadRequest, "structured_data is required")
		return
	}

	bundle := notes.ConvertToFHIR(req.StructuredData)
	writeJSON(w, http.StatusOK, &fhirResponse{FHIRBundle: bundle})
}
