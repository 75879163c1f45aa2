// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试上下文、分配结果断言与异步等待
//
// 使用方法:
//
//	testutil.AssertResultsEqual(t, expected, actual)
//	testutil.AssertAspect(t, r, aspect.Cost, 12, 1e-9)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 分配结果断言
// =============================================================================

// AssertResultsEqual 断言两个分配结果 Equal，失败时输出两者的文本形式
func AssertResultsEqual(t *testing.T, expected, actual *allocation.Result) {
	t.Helper()
	if expected == nil || actual == nil {
		if expected != actual {
			t.Errorf("result mismatch: expected %v, got %v", expected, actual)
		}
		return
	}
	if !expected.Equal(actual) {
		t.Errorf("result mismatch:\nexpected: %s\nactual:   %s", expected, actual)
	}
}

// AssertAspect 断言结果中 kind 的值在 delta 范围内等于 want
func AssertAspect(t *testing.T, r *allocation.Result, kind aspect.Kind, want, delta float64) {
	t.Helper()
	if r == nil {
		t.Errorf("aspect %s: result is nil", kind)
		return
	}
	got, err := r.Value(kind)
	if err != nil {
		t.Errorf("aspect %s: %v", kind, err)
		return
	}
	if diff := got - want; diff > delta || diff < -delta {
		t.Errorf("aspect %s mismatch: expected %g, got %g", kind, want, got)
	}
}

// AssertJSONEqual 断言两个值的 JSON 表示相等
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual: %s", expectedJSON, actualJSON)
	}
}

// =============================================================================
// ⏳ 异步辅助
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	if !WaitFor(condition, timeout) {
		t.Errorf("condition not met within %v", timeout)
	}
}

// WaitFor 轮询等待条件为真，超时返回 false
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// WaitForChannel 等待通道中的一个值，超时返回零值与 false
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

// MustJSON 将值编码为 JSON，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
