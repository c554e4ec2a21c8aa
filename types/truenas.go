package types

// Shapes of the objects middlewared returns. Only the fields tnctl compares are decoded.

// service.query
type Service struct {
	ID      int    `json:"id"`
	Service string `json:"service"`
	Enable  bool   `json:"enable"`
	State   string `json:"state" description:"RUNNING, STOPPED or UNKNOWN"`
	Pids    []int  `json:"pids"`
}

// network.configuration.config
type NetworkConfig struct {
	ID       int    `json:"id"`
	Hostname string `json:"hostname"`
	Domain   string `json:"domain"`
}

// systemdataset.config
type SystemDataset struct {
	ID     int    `json:"id"`
	Pool   string `json:"pool"`
	Syslog bool   `json:"syslog"`
}

// mail.config
type MailConfig struct {
	ID             int            `json:"id"`
	FromEmail      string         `json:"fromemail"`
	FromName       string         `json:"fromname"`
	OutgoingServer string         `json:"outgoingserver"`
	Port           int            `json:"port"`
	Security       string         `json:"security"`
	SMTP           bool           `json:"smtp"`
	User           *string        `json:"user"`
	Pass           *string        `json:"pass"`
	OAuth          map[string]any `json:"oauth"`
}

// smart.config
type SmartConfig struct {
	ID            int    `json:"id"`
	Interval      int    `json:"interval"`
	PowerMode     string `json:"powermode"`
	Difference    int    `json:"difference"`
	Informational int    `json:"informational"`
	Critical      int    `json:"critical"`
}

// nfs.config. V4 is set on systems that only have a v4 toggle; Protocols on newer ones.
type NFSConfig struct {
	ID              int      `json:"id"`
	Servers         int      `json:"servers"`
	UDP             bool     `json:"udp"`
	AllowNonroot    bool     `json:"allow_nonroot"`
	V4              *bool    `json:"v4"`
	Protocols       []string `json:"protocols"`
	V4Krb           bool     `json:"v4_krb"`
	V4Domain        string   `json:"v4_domain"`
	BindIP          []string `json:"bindip"`
	MountdPort      *int     `json:"mountd_port"`
	RPCStatdPort    *int     `json:"rpcstatd_port"`
	RPCLockdPort    *int     `json:"rpclockd_port"`
	UserdManageGids bool     `json:"userd_manage_gids"`
	MountdLog       bool     `json:"mountd_log"`
	StatdLockdLog   bool     `json:"statd_lockd_log"`
}

// group.query
type Group struct {
	ID      int    `json:"id" description:"Middleware database id, not the Unix GID"`
	GID     int    `json:"gid"`
	Group   string `json:"group"`
	Builtin bool   `json:"builtin"`
	SMB     bool   `json:"smb"`
	Users   []int  `json:"users"`
}

// The primary group embedded in a user.query entry
type UserGroup struct {
	ID    int    `json:"id"`
	Group string `json:"bsdgrp_group"`
	GID   int    `json:"bsdgrp_gid"`
}

// user.query
type User struct {
	ID                   int       `json:"id"`
	UID                  int       `json:"uid"`
	Username             string    `json:"username"`
	FullName             string    `json:"full_name"`
	Email                *string   `json:"email"`
	Shell                string    `json:"shell"`
	Home                 string    `json:"home"`
	SMB                  bool      `json:"smb"`
	PasswordDisabled     bool      `json:"password_disabled"`
	Sudo                 bool      `json:"sudo"`
	SudoNopasswd         bool      `json:"sudo_nopasswd"`
	SudoCommands         []string  `json:"sudo_commands"`
	SudoCommandsNopasswd []string  `json:"sudo_commands_nopasswd"`
	SSHPubKey            *string   `json:"sshpubkey"`
	Group                UserGroup `json:"group"`
	Groups               []int     `json:"groups"`
}

// A ZFS property as reported by pool.dataset.query
type DatasetProperty struct {
	Value    string `json:"value"`
	RawValue string `json:"rawvalue"`
	Parsed   any    `json:"parsed"`
	Source   string `json:"source"`
}

// pool.dataset.query
type Dataset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Pool        string          `json:"pool"`
	Comments    DatasetProperty `json:"comments"`
	Compression DatasetProperty `json:"compression"`
	Atime       DatasetProperty `json:"atime"`
	Quota       DatasetProperty `json:"quota"`
	Readonly    DatasetProperty `json:"readonly"`
}

// sharing.smb.query
type SMBShare struct {
	ID               int      `json:"id"`
	Path             string   `json:"path"`
	Name             string   `json:"name"`
	Purpose          string   `json:"purpose"`
	HostsAllow       []string `json:"hostsallow"`
	HostsDeny        []string `json:"hostsdeny"`
	Enabled          bool     `json:"enabled"`
	PathSuffix       string   `json:"path_suffix"`
	Comment          string   `json:"comment"`
	AuxSMBConf       string   `json:"auxsmbconf"`
	Home             bool     `json:"home"`
	RO               bool     `json:"ro"`
	Browsable        bool     `json:"browsable"`
	Timemachine      bool     `json:"timemachine"`
	Recyclebin       bool     `json:"recyclebin"`
	GuestOK          bool     `json:"guestok"`
	ABE              bool     `json:"abe"`
	AAPLNameMangling bool     `json:"aapl_name_mangling"`
	ACL              bool     `json:"acl"`
	DurableHandle    bool     `json:"durablehandle"`
	ShadowCopy       bool     `json:"shadowcopy"`
	Streams          bool     `json:"streams"`
	FSRVP            bool     `json:"fsrvp"`
}

// sharing.nfs.query
type NFSShare struct {
	ID           int      `json:"id"`
	Path         string   `json:"path"`
	Comment      string   `json:"comment"`
	Alldirs      bool     `json:"alldirs"`
	Quiet        bool     `json:"quiet"`
	Enabled      bool     `json:"enabled"`
	RO           bool     `json:"ro"`
	MaprootUser  *string  `json:"maproot_user"`
	MaprootGroup *string  `json:"maproot_group"`
	MapallUser   *string  `json:"mapall_user"`
	MapallGroup  *string  `json:"mapall_group"`
	Networks     []string `json:"networks"`
	Hosts        []string `json:"hosts"`
}

// pool.query
type Pool struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	GUID   string `json:"guid"`
	Status string `json:"status"`
}

// Cron-style schedule used by periodic tasks
type Schedule struct {
	Minute string `json:"minute,omitempty"`
	Hour   string `json:"hour,omitempty"`
	Dom    string `json:"dom,omitempty"`
	Month  string `json:"month,omitempty"`
	Dow    string `json:"dow,omitempty"`

	// Snapshot tasks only: the window snapshots may be taken in, HH:MM
	Begin string `json:"begin,omitempty"`
	End   string `json:"end,omitempty"`
}

// pool.scrub.query
type ScrubTask struct {
	ID          int      `json:"id"`
	Pool        int      `json:"pool"`
	PoolName    string   `json:"pool_name"`
	Threshold   int      `json:"threshold"`
	Description string   `json:"description"`
	Enabled     bool     `json:"enabled"`
	Schedule    Schedule `json:"schedule"`
}

// pool.snapshottask.query
type SnapshotTask struct {
	ID            int      `json:"id"`
	Dataset       string   `json:"dataset"`
	Recursive     bool     `json:"recursive"`
	LifetimeValue int      `json:"lifetime_value"`
	LifetimeUnit  string   `json:"lifetime_unit"`
	NamingSchema  string   `json:"naming_schema"`
	Exclude       []string `json:"exclude"`
	AllowEmpty    bool     `json:"allow_empty"`
	Enabled       bool     `json:"enabled"`
	Schedule      Schedule `json:"schedule"`
}

// smart.test.query
type SmartTest struct {
	ID       int      `json:"id"`
	Desc     string   `json:"desc"`
	AllDisks bool     `json:"all_disks"`
	Disks    []string `json:"disks"`
	Type     string   `json:"type"`
	Schedule Schedule `json:"schedule"`
}

// initshutdownscript.query
type InitScript struct {
	ID         int    `json:"id"`
	Comment    string `json:"comment"`
	Type       string `json:"type"`
	Command    string `json:"command"`
	Script     string `json:"script"`
	ScriptText string `json:"script_text"`
	When       string `json:"when"`
	Timeout    int    `json:"timeout"`
	Enabled    bool   `json:"enabled"`
}

// core.get_jobs
type Job struct {
	ID        int          `json:"id"`
	Method    string       `json:"method"`
	State     string       `json:"state"`
	Result    any          `json:"result"`
	Error     *string      `json:"error"`
	Exception *string      `json:"exception"`
	Progress  *JobProgress `json:"progress"`
}

type JobProgress struct {
	Percent     float64 `json:"percent"`
	Description string  `json:"description"`
	Extra       any     `json:"extra"`
}
