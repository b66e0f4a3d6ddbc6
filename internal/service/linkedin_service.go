package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/harsh-kumar-singhh/linkmate/configs"
	"github.com/harsh-kumar-singhh/linkmate/internal/models"
	"github.com/harsh-kumar-singhh/linkmate/internal/repository"
	"github.com/harsh-kumar-singhh/linkmate/internal/transfer"
	"github.com/harsh-kumar-singhh/linkmate/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const linkedinTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"

// Publish errors are surfaced verbatim to the post owner, so their messages
// must stay user-presentable.
var (
	ErrAuthExpired        = errors.New("LinkedIn authorization expired, reconnect your account")
	ErrPermissionDenied   = errors.New("LinkedIn denied permission to publish")
	ErrPublishUnavailable = errors.New("LinkedIn publish failed, connection error")
)

// transportError hides raw transport diagnostics (dial targets, request URLs)
// behind a generic message. Deadline errors pass through so callers can
// classify timeouts.
func transportError(err error) error {
	slog.Info(err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ErrPublishUnavailable
}

type LinkedInService interface {
	AuthorizeURL(state string) string
	Callback(ctx context.Context, code string, userID int64) error
	RefreshToken(ctx context.Context, userID int64, accessToken, refreshToken string) error
	Publish(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error)
	AccountInfo(ctx context.Context, userID int64) (*models.LinkedInAccount, bool, error)
	Disconnect(ctx context.Context, userID int64) error
}

type linkedInService struct {
	cfg        config.Config
	sa         repository.LinkedInAccountRepository
	apiBaseURL string
	client     *http.Client
}

func NewLinkedInService(cfg config.Config, sa repository.LinkedInAccountRepository) LinkedInService {
	return &linkedInService{
		cfg:        cfg,
		sa:         sa,
		apiBaseURL: "https://api.linkedin.com",
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *linkedInService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.LinkedInClientID,
		ClientSecret: s.cfg.LinkedInClientSecret,
		RedirectURL:  s.cfg.LinkedInRedirectURI,
		Scopes:       []string{"openid", "profile", "email", "w_member_social"},
		Endpoint:     linkedin.Endpoint,
	}
}

func (s *linkedInService) AuthorizeURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state)
}

func (s *linkedInService) Callback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	userInfo, err := s.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.LinkedInAccount{
		UserID:         userID,
		MemberURN:      "urn:li:person:" + userInfo.Sub,
		AccountName:    userInfo.Name,
		ProfilePicture: userInfo.Picture,
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: token.Expiry,
	}

	_, err = s.sa.Upsert(ctx, accountInfo)
	if err != nil {
		return err
	}

	return nil
}

func (s *linkedInService) fetchUserInfo(ctx context.Context, accessToken string) (*transfer.LinkedInUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("Unexpected response status")
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var userInfo transfer.LinkedInUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}

	return &userInfo, nil
}

func (s *linkedInService) RefreshToken(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Add("grant_type", "refresh_token")
	data.Add("refresh_token", decryptedRefreshToken)
	data.Add("client_id", s.cfg.LinkedInClientID)
	data.Add("client_secret", s.cfg.LinkedInClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("Unexpected response status")
		return fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var tokenResponse transfer.LinkedInTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.sa.SetToken(ctx, userID, accessToken, &models.LinkedInAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: GetExpiresAt(tokenResponse.ExpiresIn),
	})
}

// Publish creates a UGC share on LinkedIn and returns the created post URN.
// The caller is expected to have verified that acc carries a credential.
func (s *linkedInService) Publish(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", ErrAuthExpired
	}

	mediaCategory := "NONE"
	var media []map[string]any

	if post.ImageURL != "" {
		assetURN, err := s.uploadImage(ctx, accessToken, acc.MemberURN, post.ImageURL)
		if err != nil {
			return "", err
		}
		mediaCategory = "IMAGE"
		media = []map[string]any{
			{"status": "READY", "media": assetURN},
		}
	}

	shareContent := map[string]any{
		"shareCommentary":    map[string]string{"text": post.Content},
		"shareMediaCategory": mediaCategory,
	}
	if media != nil {
		shareContent["media"] = media
	}

	body := map[string]any{
		"author":         acc.MemberURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBaseURL+"/v2/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", s.publishError(resp)
	}

	if id := resp.Header.Get("X-Restli-Id"); id != "" {
		return id, nil
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		return "", errors.New("LinkedIn did not return a post id")
	}

	return created.ID, nil
}

// publishError maps LinkedIn response codes onto the small set of
// user-presentable failures.
func (s *linkedInService) publishError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusForbidden:
		return ErrPermissionDenied
	}

	var errResponse transfer.LinkedInErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResponse); err == nil && errResponse.Message != "" {
		slog.Info(errResponse.Message)
	}
	return fmt.Errorf("LinkedIn publish failed with status %d", resp.StatusCode)
}

// uploadImage runs LinkedIn's registerUpload flow: reserve an asset, push the
// image bytes to the returned upload URL, hand back the asset URN.
func (s *linkedInService) uploadImage(ctx context.Context, accessToken, authorURN, imageURL string) (string, error) {
	registerBody := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   authorURN,
			"serviceRelationships": []map[string]string{
				{"relationshipType": "OWNER", "identifier": "urn:li:userGeneratedContent"},
			},
		},
	}

	payload, err := json.Marshal(registerBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBaseURL+"/v2/assets?action=registerUpload", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", s.publishError(resp)
	}

	var registered struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism struct {
				Request struct {
					UploadURL string `json:"uploadUrl"`
				} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	imageBytes, err := s.downloadImage(ctx, imageURL)
	if err != nil {
		return "", err
	}

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPut, registered.Value.UploadMechanism.Request.UploadURL, bytes.NewReader(imageBytes))
	if err != nil {
		return "", err
	}
	uploadReq.Header.Set("Authorization", "Bearer "+accessToken)

	uploadResp, err := s.client.Do(uploadReq)
	if err != nil {
		return "", transportError(err)
	}
	defer uploadResp.Body.Close()

	if uploadResp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("image upload failed with status %d", uploadResp.StatusCode)
	}

	return registered.Value.Asset, nil
}

func (s *linkedInService) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *linkedInService) AccountInfo(ctx context.Context, userID int64) (*models.LinkedInAccount, bool, error) {
	return s.sa.GetByUserID(ctx, userID)
}

func (s *linkedInService) Disconnect(ctx context.Context, userID int64) error {
	return s.sa.Remove(ctx, userID)
}
