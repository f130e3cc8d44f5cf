package hwcomp

import (
	"unsafe"

	"github.com/NeowayLabs/hwcomp/ioctl"
)

const IOCTLBase = 'O'

var (
	// _IOW('O', 128, struct dsscomp_setup_dispc_data)
	IOCTLSetupDispc = ioctl.IOW(IOCTLBase, 128, unsafe.Sizeof(sysDispcData{}))

	// _IOWR('O', 131, struct dsscomp_display_info)
	IOCTLQueryDisplay = ioctl.IOWR(IOCTLBase, 131, unsafe.Sizeof(sysDisplayInfo{}))

	// _IOR('O', 133, struct dsscomp_platform_info)
	IOCTLQueryPlatform = ioctl.IOR(IOCTLBase, 133, unsafe.Sizeof(sysPlatformInfo{}))

	// _IOW('O', 134, struct dsscomp_setup_display_data)
	IOCTLSetupDisplay = ioctl.IOW(IOCTLBase, 134, unsafe.Sizeof(sysSetupDisplay{}))
)
