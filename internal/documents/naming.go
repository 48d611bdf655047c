package documents

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentRef builds the stored name for an evaluation document:
// the member code, the evaluation date and a millisecond timestamp, keeping
// the uploaded file's extension. The client-supplied filename never reaches
// storage beyond its extension.
func DocumentRef(memberCode string, evaluationDate time.Time, uploadedAt time.Time, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	return fmt.Sprintf("%s_%s_%d%s",
		memberCode,
		evaluationDate.Format("2006-01-02"),
		uploadedAt.UnixMilli(),
		ext,
	)
}
