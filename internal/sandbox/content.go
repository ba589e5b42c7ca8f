package sandbox

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
)

// ContentInfo describes a response body for pm.response.contentInfo().
type ContentInfo struct {
	MimeType      string `json:"mimeType"`
	MimeFormat    string `json:"mimeFormat"`
	Charset       string `json:"charset"`
	FileExtension string `json:"fileExtension"`
	FileName      string `json:"fileName"`
}

// DescribeContent derives content info from the Content-Type header, falling
// back to sniffing the body for the media type and the charset.
func DescribeContent(resp *collection.Response) ContentInfo {
	var info ContentInfo
	if resp == nil {
		return info
	}
	body := []byte(resp.Body)

	if ct, ok := collection.HeaderValue(resp.Header, "Content-Type"); ok {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			info.MimeType = mt
			info.Charset = params["charset"]
		}
	}

	var detected *mimetype.MIME
	if info.MimeType == "" && len(body) > 0 {
		detected = mimetype.Detect(body)
		if mt, params, err := mime.ParseMediaType(detected.String()); err == nil {
			info.MimeType = mt
			if info.Charset == "" {
				info.Charset = params["charset"]
			}
		}
	}

	ext := ""
	if m := mimetype.Lookup(info.MimeType); m != nil {
		ext = m.Extension()
	} else if detected != nil {
		ext = detected.Extension()
	}

	if info.Charset == "" && len(body) > 0 {
		if best, err := chardet.NewTextDetector().DetectBest(body); err == nil {
			info.Charset = best.Charset
		}
	}

	info.Charset = strings.ToLower(info.Charset)
	info.MimeFormat = mimeFormat(info.MimeType)
	info.FileExtension = strings.TrimPrefix(ext, ".")
	if ext != "" {
		info.FileName = "response" + ext
	}
	return info
}

func mimeFormat(mt string) string {
	if mt == "" {
		return ""
	}
	top, sub, _ := strings.Cut(mt, "/")
	switch {
	case strings.Contains(sub, "json"):
		return "json"
	case strings.Contains(sub, "xml"):
		return "xml"
	case sub == "html":
		return "html"
	case sub == "javascript" || sub == "ecmascript":
		return "script"
	case top == "text":
		return "text"
	case top == "image" || top == "audio" || top == "video":
		return top
	default:
		return "raw"
	}
}
