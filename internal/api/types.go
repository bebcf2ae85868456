package api

// Структуры запросов и ответов API обращений и учетных записей.

// RegisterRequest — тело запроса регистрации.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest — тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostMessageRequest — новое сообщение в обращении.
type PostMessageRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// UpdateStatusRequest — смена статуса обращения администратором.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatusResponse — статус обращения после изменения.
type UpdateStatusResponse struct {
	QuestionID int64  `json:"question_id"`
	Status     string `json:"status"`
}

// UploadFileResponse — ответ на загрузку изображения.
type UploadFileResponse struct {
	FileID string `json:"file_id"`
	URL    string `json:"url"`
}

// QuestionListResponse — список обращений для админки.
type QuestionListResponse struct {
	Questions interface{} `json:"questions"`
	Total     int         `json:"total"`
}

// DevSeedResponse — данные демонстрационного набора.
type DevSeedResponse struct {
	QuestionID int64  `json:"question_id"`
	UserToken  string `json:"user_token"`
	AdminToken string `json:"admin_token"`
}
