package utils

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CalculateMD5 computes the MD5 hash of a byte slice.
func CalculateMD5(data []byte) string {
	hasher := md5.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// CalculateSHA256 computes the SHA-256 hash of a byte slice.
func CalculateSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ScreeningRunHash 计算一轮筛选的缓存键：JD文本 + 排序后的候选人ID集合。
// 相同JD对相同候选人集合的重复筛选可以直接命中缓存。
func ScreeningRunHash(jdText string, candidateIDs []string) string {
	sorted := make([]string, len(candidateIDs))
	copy(sorted, candidateIDs)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(jdText))
	for _, id := range sorted {
		b.WriteString("|")
		b.WriteString(id)
	}
	return CalculateSHA256([]byte(b.String()))
}
