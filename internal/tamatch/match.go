// Package tamatch pairs research scholars with courses that need a teaching
// assistant. Each course gets at most one scholar and each scholar assists at
// most one course; the number of pairs is maximal.
package tamatch

import "sort"

// Candidate is a scholar together with the courses they are able to assist.
type Candidate struct {
	ID        string
	CourseIDs []string
}

// Pair assigns one candidate to one course.
type Pair struct {
	CourseID    string `json:"courseId"`
	CandidateID string `json:"scholarId"`
}

// Result is a maximum matching plus whatever could not be paired.
type Result struct {
	Pairs               []Pair   `json:"pairs"`
	UnmatchedCandidates []string `json:"unmatchedScholars"`
	UnmatchedCourses    []string `json:"unmatchedCourses"`
}

// Match computes a maximum bipartite matching with augmenting paths.
// Candidates are tried in ID order and each candidate's courses in the order
// given, so identical inputs always produce identical pairs. Edges to courses
// outside courseIDs are ignored, as are repeated candidate IDs after the first.
func Match(candidates []Candidate, courseIDs []string) Result {
	courses := uniq(courseIDs)
	known := make(map[string]struct{}, len(courses))
	for _, id := range courses {
		known[id] = struct{}{}
	}

	ordered := make([]Candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	edges := make(map[string][]string, len(ordered))
	for _, c := range ordered {
		for _, courseID := range uniq(c.CourseIDs) {
			if _, ok := known[courseID]; ok {
				edges[c.ID] = append(edges[c.ID], courseID)
			}
		}
	}

	owner := make(map[string]string, len(courses))
	var augment func(candidateID string, visited map[string]struct{}) bool
	augment = func(candidateID string, visited map[string]struct{}) bool {
		for _, courseID := range edges[candidateID] {
			if _, ok := visited[courseID]; ok {
				continue
			}
			visited[courseID] = struct{}{}
			current, taken := owner[courseID]
			if !taken || augment(current, visited) {
				owner[courseID] = candidateID
				return true
			}
		}
		return false
	}
	for _, c := range ordered {
		augment(c.ID, make(map[string]struct{}))
	}

	result := Result{
		Pairs:               make([]Pair, 0, len(owner)),
		UnmatchedCandidates: []string{},
		UnmatchedCourses:    []string{},
	}
	matched := make(map[string]struct{}, len(owner))
	for _, courseID := range courses {
		candidateID, ok := owner[courseID]
		if !ok {
			result.UnmatchedCourses = append(result.UnmatchedCourses, courseID)
			continue
		}
		matched[candidateID] = struct{}{}
		result.Pairs = append(result.Pairs, Pair{CourseID: courseID, CandidateID: candidateID})
	}
	sort.Slice(result.Pairs, func(i, j int) bool { return result.Pairs[i].CourseID < result.Pairs[j].CourseID })
	for _, c := range ordered {
		if _, ok := matched[c.ID]; !ok {
			result.UnmatchedCandidates = append(result.UnmatchedCandidates, c.ID)
		}
	}
	return result
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
