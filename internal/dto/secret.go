package dto

type CreateSecretRequest struct {
	Message  string `json:"message"`
	Password string `json:"password"`
}

type CreateSecretResponse struct {
	Message   string `json:"message"`
	SecretURL string `json:"secretUrl"`
}

type ProbeSecretResponse struct {
	Exists bool `json:"exists"`
}

type ViewSecretRequest struct {
	Password string `json:"password"`
}

type ViewSecretResponse struct {
	Message string `json:"message"`
	Secret  string `json:"secret"`
}
