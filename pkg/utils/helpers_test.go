package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMD5(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", CalculateMD5(nil), "空内容的MD5不符")
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", CalculateMD5([]byte("hello world")), "MD5计算错误")
}

func TestScreeningRunHash(t *testing.T) {
	jd := "We need a Go developer"

	base := ScreeningRunHash(jd, []string{"candidate_1", "candidate_2"})

	// 候选人顺序不应影响缓存键
	reordered := ScreeningRunHash(jd, []string{"candidate_2", "candidate_1"})
	assert.Equal(t, base, reordered, "候选人顺序不同时缓存键应一致")

	// JD首尾空白不应影响缓存键
	padded := ScreeningRunHash("  "+jd+"\n", []string{"candidate_1", "candidate_2"})
	assert.Equal(t, base, padded, "JD首尾空白不应影响缓存键")

	// 不同候选人集合应产生不同的键
	different := ScreeningRunHash(jd, []string{"candidate_1", "candidate_3"})
	assert.NotEqual(t, base, different, "候选人集合不同时缓存键应不同")

	// 不同JD应产生不同的键
	otherJD := ScreeningRunHash("We need a Python developer", []string{"candidate_1", "candidate_2"})
	assert.NotEqual(t, base, otherJD, "JD不同时缓存键应不同")
}
