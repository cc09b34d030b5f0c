package content

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

const manifestName = "imsmanifest.xml"

// DetectScormUpload decides whether a generic upload is a SCORM package from its name and
// target path alone: a .zip under a scorm/ path segment, or a .zip whose name mentions scorm.
// The archive is not opened; InspectPackage does that when manifest checks are enabled.
func DetectScormUpload(filename, targetPath string) bool {
	name := strings.ToLower(strings.TrimSpace(filename))
	if path.Ext(name) != ".zip" {
		return false
	}
	if strings.Contains(path.Base(name), "scorm") {
		return true
	}
	p := strings.ToLower(strings.Trim(strings.TrimSpace(targetPath), "/"))
	for _, seg := range strings.Split(p, "/") {
		if seg == "scorm" {
			return true
		}
	}
	return false
}

// PackageManifest is what InspectPackage learns from imsmanifest.xml.
type PackageManifest struct {
	Identifier string
	Title      string
	Version    training.ScormVersion
	LaunchHref string
}

var ErrNoManifest = errors.New("archive has no imsmanifest.xml at its root")

type xmlManifest struct {
	XMLName    xml.Name `xml:"manifest"`
	Identifier string   `xml:"identifier,attr"`
	Metadata   struct {
		Schema        string `xml:"schema"`
		SchemaVersion string `xml:"schemaversion"`
	} `xml:"metadata"`
	Organizations struct {
		Default       string `xml:"default,attr"`
		Organizations []struct {
			Identifier string `xml:"identifier,attr"`
			Title      string `xml:"title"`
		} `xml:"organization"`
	} `xml:"organizations"`
	Resources struct {
		Resources []struct {
			Identifier string `xml:"identifier,attr"`
			Href       string `xml:"href,attr"`
			// 1.2 uses adlcp:scormtype, 2004 uses adlcp:scormType
			ScormType12   string `xml:"scormtype,attr"`
			ScormType2004 string `xml:"scormType,attr"`
		} `xml:"resource"`
	} `xml:"resources"`
}

// InspectPackage opens a zip archive and reads its root manifest to confirm it is a SCORM
// package, detect the version and find the launchable SCO.
func InspectPackage(r io.ReaderAt, size int64) (*PackageManifest, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &training.UploadError{Reason: training.UploadInvalid, Message: "not a zip archive", Cause: err}
	}
	var mf *zip.File
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, manifestName) {
			mf = f
			break
		}
	}
	if mf == nil {
		return nil, &training.UploadError{Reason: training.UploadInvalid, Cause: ErrNoManifest}
	}
	rc, err := mf.Open()
	if err != nil {
		return nil, &training.UploadError{Reason: training.UploadInvalid, Message: "manifest unreadable", Cause: err}
	}
	defer rc.Close()

	var doc xmlManifest
	if err := xml.NewDecoder(io.LimitReader(rc, 4<<20)).Decode(&doc); err != nil {
		return nil, &training.UploadError{Reason: training.UploadInvalid, Message: "manifest is not valid xml", Cause: err}
	}

	out := &PackageManifest{
		Identifier: doc.Identifier,
		Version:    detectVersion(doc.Metadata.SchemaVersion),
	}
	for _, org := range doc.Organizations.Organizations {
		if doc.Organizations.Default == "" || org.Identifier == doc.Organizations.Default {
			out.Title = strings.TrimSpace(org.Title)
			break
		}
	}
	for _, res := range doc.Resources.Resources {
		st := strings.ToLower(res.ScormType12 + res.ScormType2004)
		if st == "sco" && strings.TrimSpace(res.Href) != "" {
			out.LaunchHref = strings.TrimSpace(res.Href)
			break
		}
	}
	if out.LaunchHref == "" {
		return nil, &training.UploadError{Reason: training.UploadInvalid, Message: "manifest declares no launchable sco"}
	}
	return out, nil
}

func detectVersion(schemaVersion string) training.ScormVersion {
	v := strings.ToLower(strings.TrimSpace(schemaVersion))
	switch {
	case strings.HasPrefix(v, "1.2"):
		return training.ScormVersion12
	case strings.Contains(v, "2004"), strings.HasPrefix(v, "cam 1.3"):
		return training.ScormVersion2004
	default:
		return training.ScormVersion12
	}
}

func (m *PackageManifest) String() string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s (SCORM %s) launch=%s", m.Identifier, m.Version, m.LaunchHref)
}
