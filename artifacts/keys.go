package artifacts

import (
	"fmt"
	"strings"
)

const metadataSK = "METADATA"

func projectPK(projectID string) string {
	return "PROJECT#" + projectID
}

func epicSK(epicID string) string {
	return "EPIC#" + epicID
}

func featureSK(epicID, featureID string) string {
	return epicSK(epicID) + "#FEATURE#" + featureID
}

func useCaseSK(epicID, featureID, useCaseID string) string {
	return featureSK(epicID, featureID) + "#UC#" + useCaseID
}

func testCaseSK(epicID, featureID, useCaseID, testCaseID string) string {
	return useCaseSK(epicID, featureID, useCaseID) + "#TC#" + testCaseID
}

// sortKeyPath holds the ids parsed out of an artifact sort key. Depth tells
// which levels are set: 1 epic, 2 feature, 3 use case, 4 test case.
type sortKeyPath struct {
	Depth      int
	EpicID     string
	FeatureID  string
	UseCaseID  string
	TestCaseID string
}

// parseSortKey splits an EPIC#... sort key back into its path. Ids never
// contain '#', so segment count alone determines the depth.
func parseSortKey(sk string) (sortKeyPath, error) {
	segments := strings.Split(sk, "#")
	labels := []string{"EPIC", "FEATURE", "UC", "TC"}
	path := sortKeyPath{}
	ids := []*string{&path.EpicID, &path.FeatureID, &path.UseCaseID, &path.TestCaseID}

	if len(segments)%2 != 0 || len(segments) < 2 || len(segments) > 8 {
		return sortKeyPath{}, fmt.Errorf("artifacts: malformed sort key %q", sk)
	}
	for i := 0; i < len(segments); i += 2 {
		level := i / 2
		if segments[i] != labels[level] || segments[i+1] == "" {
			return sortKeyPath{}, fmt.Errorf("artifacts: malformed sort key %q", sk)
		}
		*ids[level] = segments[i+1]
		path.Depth = level + 1
	}
	return path, nil
}
