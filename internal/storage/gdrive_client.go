package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveClient uploads transcripts to and downloads media from Google Drive
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveClient creates a new Google Drive client
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveClient, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	client, err := getClient(ctx, config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
	}

	if err := dc.ensureFolder(ctx); err != nil {
		return nil, err
	}

	return dc, nil
}

// getClient loads the cached token or runs the console authorization flow
func getClient(ctx context.Context, config *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			log.Printf("WARNING: %v", err)
		}
	}
	return config.Client(ctx, tok), nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser:\n%v\n", authURL)
	fmt.Print("Enter authorization code: ")

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// escapeQuery quotes a value for a Drive search query
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// folderQuery builds the search for a folder by name, optionally under a parent
func folderQuery(name, parentID string) string {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return q
}

func (dc *DriveClient) ensureFolder(ctx context.Context) error {
	id, err := dc.findOrCreateFolder(ctx, dc.folderName, "")
	if err != nil {
		return fmt.Errorf("unable to prepare folder %s: %w", dc.folderName, err)
	}
	dc.folderID = id
	return nil
}

// Upload stores the transcript and its metadata under Transcripts/YYYY/MM/DD
// and returns a link to the transcript
func (dc *DriveClient) Upload(ctx context.Context, result *types.TranscriptResult) (string, error) {
	now := result.ProcessedAt
	if now.IsZero() {
		now = time.Now()
	}
	folderID, err := dc.ensureDateFolder(ctx, now)
	if err != nil {
		return "", err
	}

	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(result.RequestName))

	txtFile := &drive.File{
		Name:     baseFilename + ".txt",
		Parents:  []string{folderID},
		MimeType: "text/plain",
	}
	created, err := dc.service.Files.Create(txtFile).Media(strings.NewReader(result.Text)).
		Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript: %w", err)
	}

	metaJSON, err := MetadataJSON(result)
	if err != nil {
		return "", err
	}
	metaFile := &drive.File{
		Name:     baseFilename + "_meta.json",
		Parents:  []string{folderID},
		MimeType: "application/json",
	}
	if _, err := dc.service.Files.Create(metaFile).Media(strings.NewReader(string(metaJSON))).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// Download copies a Drive file the account can read into w and returns its name
func (dc *DriveClient) Download(ctx context.Context, fileID string, w io.Writer) (string, error) {
	meta, err := dc.service.Files.Get(fileID).Fields("name", "size").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read drive file %s: %w", fileID, err)
	}

	resp, err := dc.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("failed to download drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("failed to copy drive file %s: %w", fileID, err)
	}
	return meta.Name, nil
}

// ensureDateFolder creates nested year/month/day folders
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	parent := dc.folderID
	for _, name := range []string{
		fmt.Sprintf("%d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
	} {
		id, err := dc.findOrCreateFolder(ctx, name, parent)
		if err != nil {
			return "", fmt.Errorf("unable to prepare folder %s: %w", name, err)
		}
		parent = id
	}
	return parent, nil
}

func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	r, err := dc.service.Files.List().Q(folderQuery(name, parentID)).Spaces("drive").
		Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}
