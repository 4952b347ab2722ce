package storage

import (
	"strings"
	"testing"
)

func TestBuildPhotoUploadPath(t *testing.T) {
	path, err := BuildObjectPath(PurposePhotoUpload, PathParams{ImageID: "img_01ABC", FileName: "vermelho-1.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "uploads/photos/img_01ABC/vermelho-1.jpg" {
		t.Fatalf("unexpected path: %s", path)
	}
}

func TestBuildProductPhotoPath(t *testing.T) {
	path, err := BuildObjectPath(PurposeProductPhoto, PathParams{ProductID: "prd_9", FileName: "main.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "catalog/products/prd_9/main.png" {
		t.Fatalf("unexpected path: %s", path)
	}
}

func TestBuildObjectPathRejectsTraversal(t *testing.T) {
	if _, err := BuildObjectPath(PurposePhotoUpload, PathParams{ImageID: "img_1", FileName: "../secret"}); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if _, err := BuildObjectPath(PurposeProductPhoto, PathParams{ProductID: "a/b", FileName: "x.png"}); err == nil {
		t.Fatal("expected segment rejection")
	}
	_, err := BuildObjectPath(AssetPurpose("unknown"), PathParams{})
	if err == nil || !strings.Contains(err.Error(), "unsupported asset purpose") {
		t.Fatalf("expected unsupported purpose error, got %v", err)
	}
}
