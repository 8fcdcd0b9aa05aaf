/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Few-shot Examples
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pgedge-nl2sql/internal/prompt"
)

// DefaultExamples returns the built-in few-shot examples, written for the
// Chinook sample database in both Thai and English.
func DefaultExamples() []prompt.Example {
	const longestTrack = "SELECT A.Name, T.Name, T.Milliseconds FROM artists A " +
		"JOIN albums AL ON A.ArtistId = AL.ArtistId " +
		"JOIN tracks T ON AL.AlbumId = T.AlbumId " +
		"ORDER BY T.Milliseconds DESC LIMIT 1;"

	return []prompt.Example{
		{Question: "List all artists.", SQL: "SELECT Name FROM artists;"},
		{Question: "แสดงรายชื่อศิลปินทั้งหมด", SQL: "SELECT Name FROM artists;"},
		{Question: "นับจำนวนเพลงในแต่ละอัลบั้ม", SQL: "SELECT AlbumId, COUNT(*) FROM tracks GROUP BY AlbumId;"},
		{Question: "Count the number of tracks in each album.", SQL: "SELECT AlbumId, COUNT(*) FROM tracks GROUP BY AlbumId;"},
		{Question: "หาเพลงทั้งหมดจากอัลบั้มที่มี AlbumId เป็น 1", SQL: "SELECT Name FROM tracks WHERE AlbumId = 1;"},
		{Question: "Find all tracks from the album with AlbumId 1.", SQL: "SELECT Name FROM tracks WHERE AlbumId = 1;"},
		{Question: "หาศิลปินที่มีเพลงยาวที่สุด", SQL: longestTrack},
		{Question: "Find the artist with the longest track.", SQL: longestTrack},
	}
}

// LoadExamples reads an ordered YAML (or JSON) list of question/sql pairs.
// An empty list or an incomplete entry is an error.
func LoadExamples(path string) ([]prompt.Example, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read examples file: %w", err)
	}

	var examples []prompt.Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("invalid examples file %s: %w", path, err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("examples file %s contains no examples", path)
	}

	for i, ex := range examples {
		if strings.TrimSpace(ex.Question) == "" || strings.TrimSpace(ex.SQL) == "" {
			return nil, fmt.Errorf("example %d in %s needs both question and sql", i+1, path)
		}
	}
	return examples, nil
}
