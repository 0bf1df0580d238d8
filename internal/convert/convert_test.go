package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
	tu "github.com/xdjs/artist-bio-gen-batch/internal/testing"
)

func runConvert(t *testing.T, input string, opts Options) (Stats, []Task, error) {
	t.Helper()

	var out bytes.Buffer
	stats, err := NewConverter(opts, nil).Run(strings.NewReader(input), &out)

	var tasks []Task
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var task Task
		if uerr := json.Unmarshal([]byte(line), &task); uerr != nil {
			t.Fatalf("output line is not valid JSON: %v (%q)", uerr, line)
		}
		tasks = append(tasks, task)
	}
	return stats, tasks, err
}

func TestBuildTask(t *testing.T) {
	rec := Record{ID: "a1", Name: "NewJeans", Data: "K-pop group"}

	t.Run("With Version", func(t *testing.T) {
		task := BuildTask(rec, "bio_gen", "v1.0")

		if task.CustomID != "a1" {
			t.Errorf("expected custom_id a1, got %s", task.CustomID)
		}
		if task.Method != "POST" {
			t.Errorf("expected method POST, got %s", task.Method)
		}
		if task.URL != "/v1/responses" {
			t.Errorf("expected url /v1/responses, got %s", task.URL)
		}
		if task.Body.Prompt.ID != "bio_gen" || task.Body.Prompt.Version != "v1.0" {
			t.Errorf("unexpected prompt: %+v", task.Body.Prompt)
		}
		if task.Body.Prompt.Variables.ArtistName != "NewJeans" {
			t.Errorf("expected artist_name NewJeans, got %s", task.Body.Prompt.Variables.ArtistName)
		}
		if task.Body.Prompt.Variables.ArtistData != "K-pop group" {
			t.Errorf("expected artist_data preserved, got %s", task.Body.Prompt.Variables.ArtistData)
		}
	})

	t.Run("Version Omitted When Unset", func(t *testing.T) {
		task := BuildTask(rec, "bio_gen", "")

		data, err := json.Marshal(task)
		if err != nil {
			t.Fatalf("failed to marshal task: %v", err)
		}
		if strings.Contains(string(data), "version") {
			t.Errorf("expected version key absent, got %s", data)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		task := BuildTask(rec, "bio_gen", "v1.0")

		data, err := json.Marshal(task)
		if err != nil {
			t.Fatalf("failed to marshal task: %v", err)
		}

		var parsed Task
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("failed to unmarshal task: %v", err)
		}
		if !reflect.DeepEqual(task, parsed) {
			t.Errorf("round trip mismatch: %+v != %+v", task, parsed)
		}
	})
}

func TestConverter(t *testing.T) {
	header := "artist_id,artist_name,artist_data\n"

	t.Run("Spec Example Row", func(t *testing.T) {
		input := header + `a1,NewJeans,"K-pop group; ADOR; 'Supernatural' era"` + "\n"

		var out bytes.Buffer
		stats, err := NewConverter(Options{PromptID: "bio_gen", PromptVersion: "v1.0"}, nil).
			Run(strings.NewReader(input), &out)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if stats.Read != 1 || stats.Written != 1 || stats.Skipped != 0 {
			t.Errorf("unexpected stats: %+v", stats)
		}

		want := `{"custom_id":"a1","method":"POST","url":"/v1/responses","body":{"prompt":{"id":"bio_gen","version":"v1.0","variables":{"artist_name":"NewJeans","artist_data":"K-pop group; ADOR; 'Supernatural' era"}}}}` + "\n"
		if out.String() != want {
			t.Errorf("unexpected line:\n got %q\nwant %q", out.String(), want)
		}
	})

	t.Run("Lenient Mode Skips Invalid Rows", func(t *testing.T) {
		input := header +
			"a1,First,\n" +
			"a2,,missing name\n" +
			",Missing ID,data\n" +
			"a4,Fourth,data\n"

		stats, tasks, err := runConvert(t, input, Options{PromptID: "bio_gen"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if stats.Read != 4 || stats.Written != 2 || stats.Skipped != 2 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if stats.Written+stats.Skipped != stats.Read {
			t.Errorf("written+skipped must equal read, got %+v", stats)
		}
		if len(tasks) != 2 || tasks[0].CustomID != "a1" || tasks[1].CustomID != "a4" {
			t.Errorf("unexpected tasks: %+v", tasks)
		}
	})

	t.Run("Strict Mode Aborts On First Invalid Row", func(t *testing.T) {
		input := header +
			"a1,First,\n" +
			"a2,,missing name\n" +
			"a3,Third,data\n"

		stats, tasks, err := runConvert(t, input, Options{PromptID: "bio_gen", Strict: true})
		if !errors.Is(err, shared.ErrInvalidRow) {
			t.Fatalf("expected ErrInvalidRow, got %v", err)
		}

		// rows before the failure stay written, nothing after it is
		if len(tasks) != 1 || tasks[0].CustomID != "a1" {
			t.Errorf("expected only the first task, got %+v", tasks)
		}
		if stats.Read != 2 || stats.Written != 1 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("Limit Counts All Data Rows", func(t *testing.T) {
		input := header +
			"a1,First,\n" +
			",bad,\n" +
			"a3,Third,\n" +
			"a4,Fourth,\n"

		stats, tasks, err := runConvert(t, input, Options{PromptID: "bio_gen", Limit: 3})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if stats.Read != 3 {
			t.Errorf("expected 3 rows read under limit, got %d", stats.Read)
		}
		if stats.Written != 2 || stats.Skipped != 1 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if len(tasks) != 2 {
			t.Errorf("expected 2 tasks, got %d", len(tasks))
		}
	})

	t.Run("Trims Surrounding Whitespace", func(t *testing.T) {
		input := header + "  a1  ,  NewJeans  ,  some data  \n"

		_, tasks, err := runConvert(t, input, Options{PromptID: "bio_gen"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		vars := tasks[0].Body.Prompt.Variables
		if tasks[0].CustomID != "a1" || vars.ArtistName != "NewJeans" || vars.ArtistData != "some data" {
			t.Errorf("expected trimmed fields, got %+v", tasks[0])
		}
	})

	t.Run("Whitespace-Only Name Is Invalid", func(t *testing.T) {
		input := header + "a1,   ,data\n"

		stats, _, err := runConvert(t, input, Options{PromptID: "bio_gen"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if stats.Skipped != 1 {
			t.Errorf("expected row skipped, got %+v", stats)
		}
	})

	t.Run("Empty Data Field Is Valid", func(t *testing.T) {
		input := header + "a1,NewJeans,\n"

		stats, tasks, err := runConvert(t, input, Options{PromptID: "bio_gen"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if stats.Written != 1 {
			t.Errorf("expected row written, got %+v", stats)
		}
		if tasks[0].Body.Prompt.Variables.ArtistData != "" {
			t.Errorf("expected empty artist_data, got %q", tasks[0].Body.Prompt.Variables.ArtistData)
		}
	})

	t.Run("Non-ASCII Written Verbatim", func(t *testing.T) {
		input := header + "a1,뉴진스,미연&민니\n"

		var out bytes.Buffer
		if _, err := NewConverter(Options{PromptID: "bio_gen"}, nil).Run(strings.NewReader(input), &out); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "뉴진스") {
			t.Errorf("expected unescaped non-ASCII output, got %q", out.String())
		}
		if strings.Contains(out.String(), `\u`) {
			t.Errorf("expected no unicode escapes, got %q", out.String())
		}
	})

	t.Run("Header Mode", func(t *testing.T) {
		t.Run("Reordered And Extra Columns", func(t *testing.T) {
			input := "artist_name,extra,artist_id,artist_data\n" +
				"NewJeans,x,a1,data\n"

			_, tasks, err := runConvert(t, input, Options{PromptID: "bio_gen"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tasks[0].CustomID != "a1" || tasks[0].Body.Prompt.Variables.ArtistName != "NewJeans" {
				t.Errorf("expected columns mapped by name, got %+v", tasks[0])
			}
		})

		t.Run("Missing Required Column", func(t *testing.T) {
			input := "artist_id,artist_name\n" + "a1,NewJeans\n"

			_, _, err := runConvert(t, input, Options{PromptID: "bio_gen"})
			if !errors.Is(err, shared.ErrInvalidHeader) {
				t.Errorf("expected ErrInvalidHeader, got %v", err)
			}
		})

		t.Run("Empty Input", func(t *testing.T) {
			_, _, err := runConvert(t, "", Options{PromptID: "bio_gen"})
			if !errors.Is(err, shared.ErrInvalidHeader) {
				t.Errorf("expected ErrInvalidHeader, got %v", err)
			}
		})

		t.Run("Short Row Is Invalid", func(t *testing.T) {
			input := header + "a1,NewJeans\n"

			stats, _, err := runConvert(t, input, Options{PromptID: "bio_gen"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if stats.Skipped != 1 {
				t.Errorf("expected short row skipped, got %+v", stats)
			}
		})
	})

	t.Run("Headerless Mode", func(t *testing.T) {
		t.Run("Positional Columns", func(t *testing.T) {
			input := "a1,NewJeans,data\n" + "a2,aespa,\n"

			stats, tasks, err := runConvert(t, input, Options{PromptID: "bio_gen", SkipHeader: true})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if stats.Read != 2 || stats.Written != 2 {
				t.Errorf("unexpected stats: %+v", stats)
			}
			if tasks[0].CustomID != "a1" || tasks[1].CustomID != "a2" {
				t.Errorf("unexpected tasks: %+v", tasks)
			}
		})

		t.Run("Wrong Field Count", func(t *testing.T) {
			input := "a1,NewJeans,data,extra\n"

			stats, _, err := runConvert(t, input, Options{PromptID: "bio_gen", SkipHeader: true})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if stats.Skipped != 1 {
				t.Errorf("expected row with extra field skipped, got %+v", stats)
			}
		})

		t.Run("Wrong Field Count Strict", func(t *testing.T) {
			input := "a1,NewJeans\n"

			_, _, err := runConvert(t, input, Options{PromptID: "bio_gen", SkipHeader: true, Strict: true})
			if !errors.Is(err, shared.ErrInvalidRow) {
				t.Errorf("expected ErrInvalidRow, got %v", err)
			}
		})
	})

	t.Run("Write Failure Is Fatal", func(t *testing.T) {
		input := header + "a1,NewJeans,data\n"

		_, err := NewConverter(Options{PromptID: "bio_gen"}, nil).
			Run(strings.NewReader(input), &tu.FWriter{})
		if err == nil {
			t.Error("expected write failure to surface")
		}
	})

	t.Run("Mid-Stream Write Failure Keeps Earlier Tasks", func(t *testing.T) {
		input := header + "a1,NewJeans,data\na2,IVE,data\n"

		var out bytes.Buffer
		stats, err := NewConverter(Options{PromptID: "bio_gen"}, nil).
			Run(strings.NewReader(input), &tu.LimitedWriter{MaxWrites: 1, Target: &out})
		if err == nil {
			t.Fatal("expected write failure to surface")
		}
		if stats.Written != 1 {
			t.Errorf("expected 1 task written before failure, got %d", stats.Written)
		}
		if !strings.Contains(out.String(), `"custom_id":"a1"`) {
			t.Errorf("expected first task preserved, got %q", out.String())
		}
	})

	t.Run("Tasks Written In Input Order", func(t *testing.T) {
		var rows strings.Builder
		rows.WriteString(header)
		ids := []string{"a1", "a2", "a3", "a4", "a5"}
		for _, id := range ids {
			rows.WriteString(id + ",Artist " + id + ",\n")
		}

		_, tasks, err := runConvert(t, rows.String(), Options{PromptID: "bio_gen"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for i, id := range ids {
			if tasks[i].CustomID != id {
				t.Errorf("expected task %d to be %s, got %s", i, id, tasks[i].CustomID)
			}
		}
	})
}
