package main

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

const zapStub = `package zap

type Logger struct{}

func (l *Logger) Fatal(msg string) {}
func (l *Logger) Info(msg string)  {}

type SugaredLogger struct{}

func (s *SugaredLogger) Fatalw(msg string, kv ...interface{}) {}
func (s *SugaredLogger) Infow(msg string, kv ...interface{})  {}

func NewNop() *Logger { return &Logger{} }
`

func writePackage(t *testing.T, root, path, name, code string) {
	t.Helper()
	pkgDir := filepath.Join(root, "src", filepath.FromSlash(path))
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, name), []byte(code), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyzer(t *testing.T) {
	testdata := t.TempDir()

	badGoCode := `package a

import (
	"log"
	"os"
)

func BadFunc1() {
	panic("error") // want "использование встроенной функции panic"
}

func BadFunc2() {
	log.Fatal("error") // want "вызов log.Fatal вне функции main пакета main"
}

func BadFunc3() {
	log.Fatalf("error: %v", "something") // want "вызов log.Fatalf вне функции main пакета main"
}

func BadFunc4() {
	log.Fatalln("error") // want "вызов log.Fatalln вне функции main пакета main"
}

func BadFunc5() {
	os.Exit(1) // want "вызов os.Exit вне функции main пакета main"
}

func GoodFunc() {
	log.Println("info message")
}
`
	writePackage(t, testdata, "a", "bad.go", badGoCode)

	analysistest.Run(t, testdata, Analyzer, "a")
}

func TestAnalyzerZap(t *testing.T) {
	testdata := t.TempDir()
	writePackage(t, testdata, "go.uber.org/zap", "zap.go", zapStub)

	code := `package b

import "go.uber.org/zap"

func Serve(sugar *zap.SugaredLogger) {
	sugar.Infow("starting")
	sugar.Fatalw("failed", "error", 1) // want "вызов zap.Fatalw вне функции main пакета main"
}

func Plain() {
	zap.NewNop().Fatal("boom") // want "вызов zap.Fatal вне функции main пакета main"
}

type Fatal struct{}

func (Fatal) Fatal(string) {}

func NotZap() {
	Fatal{}.Fatal("ok")
}
`
	writePackage(t, testdata, "b", "b.go", code)

	analysistest.Run(t, testdata, Analyzer, "b")
}

func TestAnalyzerMainPackage(t *testing.T) {
	testdata := t.TempDir()

	mainGoCode := `package main

import (
	"log"
	"os"
)

func helper() {
	panic("error") // want "использование встроенной функции panic"
	log.Fatal("error") // want "вызов log.Fatal вне функции main пакета main"
	os.Exit(1) // want "вызов os.Exit вне функции main пакета main"
}

func main() {
	// Это допустимо
	if false {
		log.Fatal("ok")
		os.Exit(0)
	}
}
`
	writePackage(t, testdata, "mainpkg", "main.go", mainGoCode)

	analysistest.Run(t, testdata, Analyzer, "mainpkg")
}

func TestAnalyzerShadowedPanic(t *testing.T) {
	testdata := t.TempDir()

	code := `package c

func panic(string) {}

func F() {
	panic("not the builtin")
}
`
	writePackage(t, testdata, "c", "c.go", code)

	analysistest.Run(t, testdata, Analyzer, "c")
}
