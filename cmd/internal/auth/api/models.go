package authapi

type registerRequest struct {
	Handle    string  `json:"handle"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Secret    string  `json:"secret"`
	AvatarRef *string `json:"avatarRef,omitempty"`
}

type loginRequest struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
}

type changePasswordRequest struct {
	CurrentSecret string `json:"currentSecret"`
	NextSecret    string `json:"nextSecret"`
}

type identityResponse struct {
	IdentityID string `json:"identityId"`
	Handle     string `json:"handle"`
	Name       string `json:"name"`
	AvatarRef  string `json:"avatarRef,omitempty"`
}

type loginResponse struct {
	identityResponse
	AccessToken string `json:"accessToken"`
}
