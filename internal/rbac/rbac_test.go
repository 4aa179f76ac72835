package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleAdmin, ActionAdmin, true},
		{RoleAdmin, ActionWrite, true},
		{RoleCoordinator, ActionWrite, true},
		{RoleCoordinator, ActionSchedule, true},
		{RoleCoordinator, ActionAdmin, false},
		{RoleFoster, ActionRead, true},
		{RoleFoster, ActionComment, true},
		{RoleFoster, ActionWrite, false},
		{RoleViewer, ActionRead, true},
		{RoleViewer, ActionComment, false},
		{Role("bogus"), ActionRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("coordinator") != RoleCoordinator {
		t.Error("expected coordinator to normalize to itself")
	}
	if Normalize("superuser") != RoleViewer {
		t.Error("expected unknown role to normalize to viewer")
	}
	if Normalize("") != RoleViewer {
		t.Error("expected empty role to normalize to viewer")
	}
}
