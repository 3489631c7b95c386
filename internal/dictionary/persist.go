package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const numShards = 6

// Write persists a finalized Dictionary to dir, laid out exactly per
// spec.md §6: dict_info, predicates, and six shard files per partition.
// Partition-local index i (0-based, i.e. id minus that partition's base)
// goes to shard file i%6, at line position i/6 within that shard — this is
// our own deterministic scheme for round-tripping the shard/line position,
// adapted from the original's "shard = id mod 6" idea.
func Write(dir string, d *Dictionary) error {
	if err := writeDictInfo(dir, d); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(dir, "predicates"), d.id2predicate); err != nil {
		return fmt.Errorf("dictionary: write predicates: %w", err)
	}
	if err := writeShards(filepath.Join(dir, "subjects"), d.id2subjectOnly); err != nil {
		return fmt.Errorf("dictionary: write subject shards: %w", err)
	}
	if err := writeShards(filepath.Join(dir, "objects"), d.id2objectOnly); err != nil {
		return fmt.Errorf("dictionary: write object shards: %w", err)
	}
	if err := writeShards(filepath.Join(dir, "shared"), d.id2shared); err != nil {
		return fmt.Errorf("dictionary: write shared shards: %w", err)
	}
	return nil
}

func writeDictInfo(dir string, d *Dictionary) error {
	path := filepath.Join(dir, "dict_info")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dictionary: create dict_info: %w", err)
	}
	defer f.Close()
	// Order fixed by spec §6: subject-only, predicate, object-only, shared,
	// triple count.
	_, err = fmt.Fprintf(f, "%d\n%d\n%d\n%d\n%d\n",
		d.subjectCount, d.predicateCount, d.objectCount, d.sharedCount, d.tripleCount)
	return err
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeShards(dir string, terms []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	shardLines := make([][]string, numShards)
	for i, term := range terms {
		shard := i % numShards
		shardLines[shard] = append(shardLines[shard], term)
	}
	for shard := 0; shard < numShards; shard++ {
		path := filepath.Join(dir, fmt.Sprintf("%d", shard))
		if err := writeLines(path, shardLines[shard]); err != nil {
			return fmt.Errorf("shard %d: %w", shard, err)
		}
	}
	return nil
}

// Load reads a dictionary back from dir, loading the six shards of each
// partition concurrently — the query-time analogue of the original's
// std::async-based SubLoadDict, now plain goroutines over a WaitGroup.
func Load(dir string) (*Dictionary, error) {
	subjectCount, predicateCount, objectCount, sharedCount, tripleCount, err := readDictInfo(dir)
	if err != nil {
		return nil, err
	}

	id2predicate, err := readLines(filepath.Join(dir, "predicates"), int(predicateCount))
	if err != nil {
		return nil, fmt.Errorf("dictionary: read predicates: %w", err)
	}

	var subjectTerms, objectTerms, sharedTerms []string
	var subjErr, objErr, sharedErr error
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		subjectTerms, subjErr = readShards(filepath.Join(dir, "subjects"), int(subjectCount))
	}()
	go func() {
		defer wg.Done()
		objectTerms, objErr = readShards(filepath.Join(dir, "objects"), int(objectCount))
	}()
	go func() {
		defer wg.Done()
		sharedTerms, sharedErr = readShards(filepath.Join(dir, "shared"), int(sharedCount))
	}()
	wg.Wait()
	if subjErr != nil {
		return nil, fmt.Errorf("dictionary: read subject shards: %w", subjErr)
	}
	if objErr != nil {
		return nil, fmt.Errorf("dictionary: read object shards: %w", objErr)
	}
	if sharedErr != nil {
		return nil, fmt.Errorf("dictionary: read shared shards: %w", sharedErr)
	}

	predicate2id := make(map[string]uint32, len(id2predicate))
	for i, term := range id2predicate {
		predicate2id[term] = uint32(i) + 1
	}
	subjectOnly2id := make(map[string]uint32, len(subjectTerms))
	for i, term := range subjectTerms {
		subjectOnly2id[term] = sharedCount + uint32(i) + 1
	}
	objectOnly2id := make(map[string]uint32, len(objectTerms))
	for i, term := range objectTerms {
		objectOnly2id[term] = sharedCount + subjectCount + uint32(i) + 1
	}
	shared2id := make(map[string]uint32, len(sharedTerms))
	for i, term := range sharedTerms {
		shared2id[term] = uint32(i) + 1
	}

	return &Dictionary{
		sharedCount:    sharedCount,
		subjectCount:   subjectCount,
		objectCount:    objectCount,
		predicateCount: predicateCount,
		tripleCount:    tripleCount,

		id2shared:      sharedTerms,
		id2subjectOnly: subjectTerms,
		id2objectOnly:  objectTerms,
		id2predicate:   id2predicate,

		shared2id:      shared2id,
		subjectOnly2id: subjectOnly2id,
		objectOnly2id:  objectOnly2id,
		predicate2id:   predicate2id,
	}, nil
}

func readDictInfo(dir string) (subjectCount, predicateCount, objectCount, sharedCount, tripleCount uint32, err error) {
	path := filepath.Join(dir, "dict_info")
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("dictionary: missing dict_info: %w", err)
	}
	defer f.Close()
	vals := make([]uint32, 0, 5)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var v uint32
		if _, scanErr := fmt.Sscanf(sc.Text(), "%d", &v); scanErr != nil {
			return 0, 0, 0, 0, 0, fmt.Errorf("dictionary: malformed dict_info line %q: %w", sc.Text(), scanErr)
		}
		vals = append(vals, v)
	}
	if err := sc.Err(); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("dictionary: read dict_info: %w", err)
	}
	if len(vals) < 5 {
		return 0, 0, 0, 0, 0, fmt.Errorf("dictionary: dict_info has %d lines, want 5", len(vals))
	}
	return vals[0], vals[1], vals[2], vals[3], vals[4], nil
}

func readLines(path string, want int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if want == 0 && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	lines := make([]string, 0, want)
	sc := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// readShards reassembles a partition's term list from its six shard files,
// placing shard k's line i at partition-local index k+6*i.
func readShards(dir string, want int) ([]string, error) {
	terms := make([]string, want)
	for shard := 0; shard < numShards; shard++ {
		path := filepath.Join(dir, fmt.Sprintf("%d", shard))
		lines, err := readLines(path, 0)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("shard %d: %w", shard, err)
		}
		for i, term := range lines {
			idx := shard + numShards*i
			if idx >= want {
				return nil, fmt.Errorf("shard %d line %d: index %d exceeds partition size %d", shard, i, idx, want)
			}
			terms[idx] = term
		}
	}
	return terms, nil
}
