package repository

import (
	"context"
	"testing"

	"github.com/ayase/picvault/internal/domain"
)

func TestGetOrCreateTagAdoptsGroup(t *testing.T) {
	db := testDB(t)
	tags := NewTagRepository(db)
	ctx := context.Background()

	// Tag created without a group first (manual attach creates these).
	if _, err := tags.GetOrCreateTag(ctx, "forest", nil); err != nil {
		t.Fatalf("GetOrCreateTag failed: %v", err)
	}

	group, err := tags.GetOrCreateGroup(ctx, "general", "#006192")
	if err != nil {
		t.Fatalf("GetOrCreateGroup failed: %v", err)
	}

	// Seeing the same tag with a group adopts it.
	tag, err := tags.GetOrCreateTag(ctx, "forest", &group.ID)
	if err != nil {
		t.Fatalf("GetOrCreateTag with group failed: %v", err)
	}
	if tag.GroupID == nil || *tag.GroupID != group.ID {
		t.Errorf("tag should have been adopted into group %d, got %v", group.ID, tag.GroupID)
	}

	// But a tag already in a group stays where it is.
	other, err := tags.GetOrCreateGroup(ctx, "character", "#8243ca")
	if err != nil {
		t.Fatalf("GetOrCreateGroup failed: %v", err)
	}
	tag, err = tags.GetOrCreateTag(ctx, "forest", &other.ID)
	if err != nil {
		t.Fatalf("GetOrCreateTag failed: %v", err)
	}
	if tag.GroupID == nil || *tag.GroupID != group.ID {
		t.Errorf("grouped tag should keep its group %d, got %v", group.ID, tag.GroupID)
	}
}

func TestGetOrCreateGroupReusesExisting(t *testing.T) {
	db := testDB(t)
	tags := NewTagRepository(db)
	ctx := context.Background()

	first, err := tags.GetOrCreateGroup(ctx, "general", "#006192")
	if err != nil {
		t.Fatalf("GetOrCreateGroup failed: %v", err)
	}
	second, err := tags.GetOrCreateGroup(ctx, "general", "#ffffff")
	if err != nil {
		t.Fatalf("GetOrCreateGroup failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("same group name should reuse the row: %d != %d", first.ID, second.ID)
	}
	if second.Color != "#006192" {
		t.Errorf("existing group color should be kept, got %q", second.Color)
	}
}

func TestAttachIfAbsentKeepsExistingFlag(t *testing.T) {
	db := testDB(t)
	assets := NewAssetRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	triple := domain.PathTriple{Folder: "a", Name: "one", Extension: "jpg"}
	if err := assets.InsertStub(ctx, triple); err != nil {
		t.Fatalf("InsertStub failed: %v", err)
	}
	asset, _ := assets.GetByTriple(ctx, triple)

	if _, err := tags.GetOrCreateTag(ctx, "forest", nil); err != nil {
		t.Fatalf("GetOrCreateTag failed: %v", err)
	}

	// Manual attach first, auto attach second: the pair stays manual.
	if err := tags.AttachIfAbsent(ctx, asset.ID, "forest", false); err != nil {
		t.Fatalf("AttachIfAbsent failed: %v", err)
	}
	if err := tags.AttachIfAbsent(ctx, asset.ID, "forest", true); err != nil {
		t.Fatalf("repeat AttachIfAbsent failed: %v", err)
	}

	var assignments []domain.AssetTag
	if err := db.Where("asset_id = ?", asset.ID).Find(&assignments).Error; err != nil {
		t.Fatalf("listing assignments failed: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("assignment count = %d, want 1", len(assignments))
	}
	if assignments[0].IsAuto {
		t.Error("existing manual assignment was overwritten by auto attach")
	}
}

func TestDeleteTagsCascadesAssignments(t *testing.T) {
	db := testDB(t)
	assets := NewAssetRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	triple := domain.PathTriple{Folder: "a", Name: "one", Extension: "jpg"}
	if err := assets.InsertStub(ctx, triple); err != nil {
		t.Fatalf("InsertStub failed: %v", err)
	}
	asset, _ := assets.GetByTriple(ctx, triple)

	for _, name := range []string{"forest", "river"} {
		if _, err := tags.GetOrCreateTag(ctx, name, nil); err != nil {
			t.Fatalf("GetOrCreateTag failed: %v", err)
		}
		if err := tags.AttachIfAbsent(ctx, asset.ID, name, true); err != nil {
			t.Fatalf("AttachIfAbsent failed: %v", err)
		}
	}

	if err := tags.DeleteTags(ctx, []string{"forest"}); err != nil {
		t.Fatalf("DeleteTags failed: %v", err)
	}

	var count int64
	if err := db.Model(&domain.AssetTag{}).Where("asset_id = ?", asset.ID).Count(&count).Error; err != nil {
		t.Fatalf("counting assignments failed: %v", err)
	}
	if count != 1 {
		t.Errorf("assignment count after tag delete = %d, want 1", count)
	}
}

func TestDeleteGroupUngroupsTags(t *testing.T) {
	db := testDB(t)
	tags := NewTagRepository(db)
	ctx := context.Background()

	group, err := tags.GetOrCreateGroup(ctx, "general", "#006192")
	if err != nil {
		t.Fatalf("GetOrCreateGroup failed: %v", err)
	}
	if _, err := tags.GetOrCreateTag(ctx, "forest", &group.ID); err != nil {
		t.Fatalf("GetOrCreateTag failed: %v", err)
	}

	if err := tags.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	tag, err := tags.GetTag(ctx, "forest")
	if err != nil {
		t.Fatalf("GetTag failed: %v", err)
	}
	if tag.GroupID != nil {
		t.Errorf("tag should be ungrouped after group delete, got group %d", *tag.GroupID)
	}
}

func TestListTagsKeysetPagination(t *testing.T) {
	db := testDB(t)
	tags := NewTagRepository(db)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		if _, err := tags.GetOrCreateTag(ctx, name, nil); err != nil {
			t.Fatalf("GetOrCreateTag failed: %v", err)
		}
	}

	page1, err := tags.ListTags(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(page1) != 2 || page1[0].Name != "alpha" || page1[1].Name != "beta" {
		t.Fatalf("page1 = %v, want [alpha beta]", page1)
	}

	page2, err := tags.ListTags(ctx, page1[1].Name, 2)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(page2) != 2 || page2[0].Name != "delta" || page2[1].Name != "epsilon" {
		t.Fatalf("page2 = %v, want [delta epsilon]", page2)
	}
}
