// ABOUTME: Maps a mg/dL value onto normal, borderline or abnormal.
// ABOUTME: Ranges are closed and checked most severe first.
package clinical

import (
	"fmt"

	"github.com/harperreed/glucose/internal/models"
)

// Categorize labels a mg/dL value. Ranges are closed; when ranges overlap the
// most severe match wins.
func Categorize(valueMgDL float64, t *models.ThresholdSet) (models.Category, error) {
	if t == nil {
		return "", ErrNotConfigured
	}
	switch {
	case t.Abnormal.Contains(valueMgDL):
		return models.CategoryAbnormal, nil
	case t.Borderline.Contains(valueMgDL):
		return models.CategoryBorderline, nil
	case t.Normal.Contains(valueMgDL):
		return models.CategoryNormal, nil
	}
	return "", fmt.Errorf("%w: %.1f mg/dL (normal %s, borderline %s, abnormal %s)",
		ErrUncategorizableValue, valueMgDL, t.Normal, t.Borderline, t.Abnormal)
}
