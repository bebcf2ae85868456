package api

import (
	"log"
	"net/http"

	"gkh-portal/internal/support"
	"gkh-portal/internal/utils"
)

// GetMyQuestion возвращает обращение текущего пользователя, создавая его при первом запросе.
func GetMyQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	thread, err := getDeps(r).Service.GetOrCreateThread(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "GetMyQuestion", err)
		return
	}
	writeJSONSuccess(w, "Обращение получено", thread)
}

// PostMyMessage добавляет сообщение жителя в его обращение.
func PostMyMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req PostMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svc := getDeps(r).Service
	thread, err := svc.GetOrCreateThread(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "PostMyMessage", err)
		return
	}

	msg, err := svc.PostMessage(r.Context(), support.PostMessageInput{
		QuestionID: thread.ID,
		AuthorID:   user.ID,
		Text:       req.Text,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		writeServiceError(w, r, "PostMyMessage", err)
		return
	}
	writeJSONWithStatus(w, http.StatusCreated, "Сообщение отправлено", msg)
}

// GetMyQuestionQR отдает PNG с QR-кодом ссылки на обращение текущего пользователя.
func GetMyQuestionQR(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	deps := getDeps(r)
	if deps.Config == nil || deps.Config.PublicBaseURL == "" {
		writeJSONError(w, http.StatusServiceUnavailable, "Адрес портала не настроен")
		return
	}

	thread, err := deps.Service.GetOrCreateThread(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "GetMyQuestionQR", err)
		return
	}

	png, err := utils.GenerateQuestionQRCode(deps.Config.PublicBaseURL, thread.ID)
	if err != nil {
		log.Printf("API GetMyQuestionQR: ошибка генерации QR-кода для обращения #%d: %v", thread.ID, err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось сформировать QR-код")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ListQuestions возвращает все обращения для админки.
func ListQuestions(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	threads, err := getDeps(r).Service.ListThreadsForAdmin(r.Context(), admin.ID)
	if err != nil {
		writeServiceError(w, r, "ListQuestions", err)
		return
	}
	writeJSONSuccess(w, "Обращения получены", QuestionListResponse{Questions: threads, Total: len(threads)})
}

// GetQuestionDetails возвращает одно обращение с сообщениями.
func GetQuestionDetails(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}

	thread, err := getDeps(r).Service.GetThread(r.Context(), admin.ID, id)
	if err != nil {
		writeServiceError(w, r, "GetQuestionDetails", err)
		return
	}
	writeJSONSuccess(w, "Обращение получено", thread)
}

// UpdateQuestionStatus меняет статус обращения.
func UpdateQuestionStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := getDeps(r).Service.SetThreadStatus(r.Context(), id, req.Status, admin.ID)
	if err != nil {
		writeServiceError(w, r, "UpdateQuestionStatus", err)
		return
	}
	writeJSONSuccess(w, "Статус обращения обновлён", UpdateStatusResponse{QuestionID: id, Status: string(status)})
}

// PostAdminMessage добавляет ответ поддержки в обращение.
func PostAdminMessage(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}
	var req PostMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := getDeps(r).Service.PostMessage(r.Context(), support.PostMessageInput{
		QuestionID:  id,
		AuthorID:    admin.ID,
		Text:        req.Text,
		ImageURL:    req.ImageURL,
		IsFromAdmin: true,
	})
	if err != nil {
		writeServiceError(w, r, "PostAdminMessage", err)
		return
	}
	writeJSONWithStatus(w, http.StatusCreated, "Ответ отправлен", msg)
}
